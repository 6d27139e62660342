package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/geocoder89/carehub/internal/domain/user"
)

var ErrDisabled = errors.New("search disabled")

// Doctor is the document stored in the doctors index.
type Doctor struct {
	ID                  string  `json:"id"`
	Email               string  `json:"email"`
	Name                string  `json:"name"`
	ProfilePhoto        *string `json:"profilePhoto,omitempty"`
	Gender              string  `json:"gender"`
	Experience          int     `json:"experience"`
	AppointmentFee      int64   `json:"appointmentFee"`
	Qualification       string  `json:"qualification"`
	CurrentWorkingPlace string  `json:"currentWorkingPlace"`
	Designation         string  `json:"designation"`
	AverageRating       float64 `json:"averageRating"`
}

func DoctorFromProfile(d user.Doctor) Doctor {
	return Doctor{
		ID:                  d.ID,
		Email:               d.Email,
		Name:                d.Name,
		ProfilePhoto:        d.ProfilePhoto,
		Gender:              d.Gender,
		Experience:          d.Experience,
		AppointmentFee:      d.AppointmentFee,
		Qualification:       d.Qualification,
		CurrentWorkingPlace: d.CurrentWorkingPlace,
		Designation:         d.Designation,
		AverageRating:       d.AverageRating,
	}
}

var doctorMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":                  map[string]any{"type": "keyword"},
			"email":               map[string]any{"type": "keyword"},
			"name":                map[string]any{"type": "text"},
			"gender":              map[string]any{"type": "keyword"},
			"experience":          map[string]any{"type": "integer"},
			"appointmentFee":      map[string]any{"type": "long"},
			"qualification":       map[string]any{"type": "text"},
			"currentWorkingPlace": map[string]any{"type": "text"},
			"designation":         map[string]any{"type": "text"},
			"averageRating":       map[string]any{"type": "float"},
		},
	},
}

var doctorSearchFields = []string{"name^2", "designation", "qualification", "currentWorkingPlace"}

type DoctorIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewDoctorIndex(es *elasticsearch.Client, index string) *DoctorIndex {
	if index == "" {
		index = "doctors"
	}
	return &DoctorIndex{es: es, index: index}
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *DoctorIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.es.Indices.Exists([]string{x.index}, x.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("index exists: %s", res.Status())
	}

	body, err := encode(doctorMapping)
	if err != nil {
		return err
	}

	res, err = x.es.Indices.Create(x.index,
		x.es.Indices.Create.WithContext(ctx),
		x.es.Indices.Create.WithBody(body),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	return responseError("create index", res.StatusCode, res.IsError(), res.Body)
}

func (x *DoctorIndex) IndexDoctor(ctx context.Context, d Doctor) error {
	body, err := encode(d)
	if err != nil {
		return err
	}

	res, err := x.es.Index(x.index, body,
		x.es.Index.WithContext(ctx),
		x.es.Index.WithDocumentID(d.ID),
		x.es.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("index doctor: %w", err)
	}
	defer res.Body.Close()

	return responseError("index doctor", res.StatusCode, res.IsError(), res.Body)
}

func (x *DoctorIndex) DeleteDoctor(ctx context.Context, id string) error {
	res, err := x.es.Delete(x.index, id, x.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}

	return responseError("delete doctor", res.StatusCode, res.IsError(), res.Body)
}

// SearchDoctors runs a fuzzy multi_match over the text fields. Page is 1-based.
func (x *DoctorIndex) SearchDoctors(ctx context.Context, query string, page, limit int) (int64, []Doctor, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	q := map[string]any{"match_all": map[string]any{}}
	if query != "" {
		q = map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    doctorSearchFields,
				"fuzziness": "AUTO",
			},
		}
	}

	body, err := encode(map[string]any{
		"query": q,
		"from":  (page - 1) * limit,
		"size":  limit,
	})
	if err != nil {
		return 0, nil, err
	}

	res, err := x.es.Search(
		x.es.Search.WithContext(ctx),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(body),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search doctors: %w", err)
	}
	defer res.Body.Close()

	if err := responseError("search doctors", res.StatusCode, res.IsError(), res.Body); err != nil {
		return 0, nil, err
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Doctor `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]Doctor, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}

	return r.Hits.Total.Value, docs, nil
}

// Disabled stands in when no cluster is configured.
type Disabled struct{}

func (Disabled) IndexDoctor(context.Context, Doctor) error { return ErrDisabled }
func (Disabled) DeleteDoctor(context.Context, string) error { return ErrDisabled }
func (Disabled) SearchDoctors(context.Context, string, int, int) (int64, []Doctor, error) {
	return 0, nil, ErrDisabled
}

func encode(v any) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return &buf, nil
}

func responseError(op string, status int, isErr bool, body io.Reader) error {
	if !isErr {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(body, 4096))
	return fmt.Errorf("%s: status %d: %s", op, status, msg)
}
