package schedule

import (
	"errors"
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	DefaultInterval = 30 * time.Minute
	maxDays         = 366
)

var (
	ErrNotFound     = errors.New("schedule not found")
	ErrInvalidRange = errors.New("invalid schedule range")
	ErrInUse        = errors.New("schedule is booked by an appointment")
)

type Schedule struct {
	ID            string    `json:"id"`
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	StartDate       string `json:"startDate" binding:"required"`
	EndDate         string `json:"endDate" binding:"required"`
	StartTime       string `json:"startTime" binding:"required"`
	EndTime         string `json:"endTime" binding:"required"`
	IntervalMinutes int    `json:"intervalMinutes" binding:"omitempty,min=5,max=720"`
}

type Slot struct {
	Start time.Time
	End   time.Time
}

type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	return f
}

// Slots expands a create request into consecutive UTC slots. For each day in
// [StartDate, EndDate] it emits interval-long slots that fit in [StartTime, EndTime).
func Slots(req CreateRequest) ([]Slot, error) {
	startDay, err := time.ParseInLocation(dateLayout, req.StartDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: startDate: %v", ErrInvalidRange, err)
	}
	endDay, err := time.ParseInLocation(dateLayout, req.EndDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: endDate: %v", ErrInvalidRange, err)
	}
	if endDay.Before(startDay) {
		return nil, fmt.Errorf("%w: endDate before startDate", ErrInvalidRange)
	}
	if endDay.Sub(startDay) > maxDays*24*time.Hour {
		return nil, fmt.Errorf("%w: range longer than %d days", ErrInvalidRange, maxDays)
	}

	from, err := clock(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: startTime: %v", ErrInvalidRange, err)
	}
	to, err := clock(req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: endTime: %v", ErrInvalidRange, err)
	}
	if to <= from {
		return nil, fmt.Errorf("%w: endTime must be after startTime", ErrInvalidRange)
	}

	interval := DefaultInterval
	if req.IntervalMinutes > 0 {
		interval = time.Duration(req.IntervalMinutes) * time.Minute
	}

	var out []Slot
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		dayEnd := day.Add(to)
		for s := day.Add(from); !s.Add(interval).After(dayEnd); s = s.Add(interval) {
			out = append(out, Slot{Start: s, End: s.Add(interval)})
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: window shorter than one interval", ErrInvalidRange)
	}

	return out, nil
}

// ParseDay parses a YYYY-MM-DD filter value as the start of that UTC day.
func ParseDay(v string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, v, time.UTC)
}

func clock(v string) (time.Duration, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
