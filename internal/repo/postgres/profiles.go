package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

const (
	adminColumns   = `id, email, name, profile_photo, contact_number, is_deleted, created_at, updated_at`
	patientColumns = `id, email, name, profile_photo, contact_number, address, is_deleted, created_at, updated_at`
	doctorColumns  = `id, email, name, profile_photo, contact_number, address, registration_number,
		experience, gender, appointment_fee, qualification, current_working_place, designation,
		average_rating, is_deleted, created_at, updated_at`
)

func scanAdmin(row pgx.Row) (user.Admin, error) {
	var a user.Admin
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.ProfilePhoto, &a.ContactNumber, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt)
	return a, profileErr(err)
}

func scanPatient(row pgx.Row) (user.Patient, error) {
	var p user.Patient
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.ProfilePhoto, &p.ContactNumber, &p.Address, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	return p, profileErr(err)
}

func scanDoctor(row pgx.Row) (user.Doctor, error) {
	var d user.Doctor
	err := row.Scan(&d.ID, &d.Email, &d.Name, &d.ProfilePhoto, &d.ContactNumber, &d.Address, &d.RegistrationNumber,
		&d.Experience, &d.Gender, &d.AppointmentFee, &d.Qualification, &d.CurrentWorkingPlace, &d.Designation,
		&d.AverageRating, &d.IsDeleted, &d.CreatedAt, &d.UpdatedAt)
	return d, profileErr(err)
}

func profileErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrProfileMissing
	}
	return err
}

func (r *UsersRepo) GetAdminByEmail(ctx context.Context, email string) (a user.Admin, err error) {
	err = r.observe("profiles.get_admin", func() error {
		a, err = scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email))
		return err
	})
	return
}

func (r *UsersRepo) GetDoctorByEmail(ctx context.Context, email string) (d user.Doctor, err error) {
	err = r.observe("profiles.get_doctor", func() error {
		d, err = scanDoctor(r.pool.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE email = $1`, email))
		return err
	})
	return
}

func (r *UsersRepo) GetDoctorByID(ctx context.Context, id string) (d user.Doctor, err error) {
	err = r.observe("profiles.get_doctor_by_id", func() error {
		d, err = scanDoctor(r.pool.QueryRow(ctx,
			`SELECT `+doctorColumns+` FROM doctors WHERE id = $1 AND is_deleted = FALSE`, id))
		return err
	})
	if isInvalidUUID(err) {
		return user.Doctor{}, user.ErrProfileMissing
	}
	return
}

func (r *UsersRepo) GetPatientByEmail(ctx context.Context, email string) (p user.Patient, err error) {
	err = r.observe("profiles.get_patient", func() error {
		p, err = scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE email = $1`, email))
		return err
	})
	return
}

// GetProfile merges the user with the profile row its role owns.
func (r *UsersRepo) GetProfile(ctx context.Context, u user.User) (user.Profile, error) {
	out := user.Profile{User: u}

	switch u.Role {
	case user.RoleAdmin, user.RoleSuperAdmin:
		a, err := r.GetAdminByEmail(ctx, u.Email)
		if err != nil {
			return out, err
		}
		out.Admin = &a
	case user.RoleDoctor:
		d, err := r.GetDoctorByEmail(ctx, u.Email)
		if err != nil {
			return out, err
		}
		out.Doctor = &d
	case user.RolePatient:
		p, err := r.GetPatientByEmail(ctx, u.Email)
		if err != nil {
			return out, err
		}
		out.Patient = &p
	}

	return out, nil
}

// UpdateProfile applies a role-specific update. Nil fields are left unchanged.
func (r *UsersRepo) UpdateProfile(ctx context.Context, u user.User, upd user.ProfileUpdate) (user.Profile, error) {
	out := user.Profile{User: u}

	switch v := upd.(type) {
	case user.SuperAdminUpdate:
		a, err := r.updateAdmin(ctx, u.Email, v.AdminUpdate)
		if err != nil {
			return out, err
		}
		out.Admin = &a
	case user.AdminUpdate:
		a, err := r.updateAdmin(ctx, u.Email, v)
		if err != nil {
			return out, err
		}
		out.Admin = &a
	case user.DoctorUpdate:
		d, err := r.updateDoctor(ctx, u.Email, v)
		if err != nil {
			return out, err
		}
		out.Doctor = &d
	case user.PatientUpdate:
		p, err := r.updatePatient(ctx, u.Email, v)
		if err != nil {
			return out, err
		}
		out.Patient = &p
	default:
		return out, user.ErrProfileMissing
	}

	return out, nil
}

func (r *UsersRepo) updateAdmin(ctx context.Context, email string, v user.AdminUpdate) (a user.Admin, err error) {
	err = r.observe("profiles.update_admin", func() error {
		a, err = scanAdmin(r.pool.QueryRow(ctx, `
			UPDATE admins SET
			    name = COALESCE($2, name),
			    profile_photo = COALESCE($3, profile_photo),
			    contact_number = COALESCE($4, contact_number),
			    updated_at = NOW()
			WHERE email = $1 AND is_deleted = FALSE
			RETURNING `+adminColumns, email, v.Name, v.ProfilePhoto, v.ContactNumber))
		return err
	})
	return
}

func (r *UsersRepo) updateDoctor(ctx context.Context, email string, v user.DoctorUpdate) (d user.Doctor, err error) {
	err = r.observe("profiles.update_doctor", func() error {
		d, err = scanDoctor(r.pool.QueryRow(ctx, `
			UPDATE doctors SET
			    name = COALESCE($2, name),
			    profile_photo = COALESCE($3, profile_photo),
			    contact_number = COALESCE($4, contact_number),
			    address = COALESCE($5, address),
			    experience = COALESCE($6, experience),
			    gender = COALESCE($7, gender),
			    appointment_fee = COALESCE($8, appointment_fee),
			    qualification = COALESCE($9, qualification),
			    current_working_place = COALESCE($10, current_working_place),
			    designation = COALESCE($11, designation),
			    updated_at = NOW()
			WHERE email = $1 AND is_deleted = FALSE
			RETURNING `+doctorColumns,
			email, v.Name, v.ProfilePhoto, v.ContactNumber, v.Address, v.Experience, v.Gender,
			v.AppointmentFee, v.Qualification, v.CurrentWorkingPlace, v.Designation))
		return err
	})
	return
}

func (r *UsersRepo) updatePatient(ctx context.Context, email string, v user.PatientUpdate) (p user.Patient, err error) {
	err = r.observe("profiles.update_patient", func() error {
		p, err = scanPatient(r.pool.QueryRow(ctx, `
			UPDATE patients SET
			    name = COALESCE($2, name),
			    profile_photo = COALESCE($3, profile_photo),
			    contact_number = COALESCE($4, contact_number),
			    address = COALESCE($5, address),
			    updated_at = NOW()
			WHERE email = $1 AND is_deleted = FALSE
			RETURNING `+patientColumns, email, v.Name, v.ProfilePhoto, v.ContactNumber, v.Address))
		return err
	})
	return
}
