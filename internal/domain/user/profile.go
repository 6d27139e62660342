package user

import "time"

type Admin struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	ProfilePhoto  *string   `json:"profilePhoto,omitempty"`
	ContactNumber string    `json:"contactNumber"`
	IsDeleted     bool      `json:"isDeleted"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Doctor struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	ProfilePhoto        *string   `json:"profilePhoto,omitempty"`
	ContactNumber       string    `json:"contactNumber"`
	Address             *string   `json:"address,omitempty"`
	RegistrationNumber  string    `json:"registrationNumber"`
	Experience          int       `json:"experience"`
	Gender              string    `json:"gender"`
	AppointmentFee      int64     `json:"appointmentFee"`
	Qualification       string    `json:"qualification"`
	CurrentWorkingPlace string    `json:"currentWorkingPlace"`
	Designation         string    `json:"designation"`
	AverageRating       float64   `json:"averageRating"`
	IsDeleted           bool      `json:"isDeleted"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type Patient struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	ProfilePhoto  *string   `json:"profilePhoto,omitempty"`
	ContactNumber *string   `json:"contactNumber,omitempty"`
	Address       *string   `json:"address,omitempty"`
	IsDeleted     bool      `json:"isDeleted"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProfileUpdate is the closed set of per-role profile changes.
// Each implementation only carries the fields its role may edit.
type ProfileUpdate interface {
	Role() Role
	isProfileUpdate()
}

type AdminUpdate struct {
	Name          *string `json:"name"`
	ProfilePhoto  *string `json:"profilePhoto"`
	ContactNumber *string `json:"contactNumber"`
}

type DoctorUpdate struct {
	Name                *string `json:"name"`
	ProfilePhoto        *string `json:"profilePhoto"`
	ContactNumber       *string `json:"contactNumber"`
	Address             *string `json:"address"`
	Experience          *int    `json:"experience" binding:"omitempty,min=0"`
	Gender              *string `json:"gender" binding:"omitempty,oneof=MALE FEMALE"`
	AppointmentFee      *int64  `json:"appointmentFee" binding:"omitempty,min=0"`
	Qualification       *string `json:"qualification"`
	CurrentWorkingPlace *string `json:"currentWorkingPlace"`
	Designation         *string `json:"designation"`
}

type PatientUpdate struct {
	Name          *string `json:"name"`
	ProfilePhoto  *string `json:"profilePhoto"`
	ContactNumber *string `json:"contactNumber"`
	Address       *string `json:"address"`
}

// SuperAdminUpdate shares the admin table; the role only differs for authorization.
type SuperAdminUpdate struct {
	AdminUpdate
}

func (AdminUpdate) Role() Role      { return RoleAdmin }
func (DoctorUpdate) Role() Role     { return RoleDoctor }
func (PatientUpdate) Role() Role    { return RolePatient }
func (SuperAdminUpdate) Role() Role { return RoleSuperAdmin }

func (AdminUpdate) isProfileUpdate()      {}
func (DoctorUpdate) isProfileUpdate()     {}
func (PatientUpdate) isProfileUpdate()    {}
func (SuperAdminUpdate) isProfileUpdate() {}

// Profile is a user joined with whichever profile row its role owns.
type Profile struct {
	User
	Admin   *Admin   `json:"admin,omitempty"`
	Doctor  *Doctor  `json:"doctor,omitempty"`
	Patient *Patient `json:"patient,omitempty"`
}
