package accounts

import (
	"context"
	"errors"
	"strings"

	"medsys.org/internal/auth"
	"medsys.org/internal/result"
)

// MemberKind says which side of a medical record an account sits on.
type MemberKind string

const (
	KindPatient        MemberKind = "patient"
	KindMedicalOfficer MemberKind = "medical_officer"
)

// DefaultRole is granted to a new member when the request names no role.
func (k MemberKind) DefaultRole() string {
	switch k {
	case KindPatient:
		return auth.RolePatient
	case KindMedicalOfficer:
		return auth.RoleMedicalOfficer
	default:
		return ""
	}
}

func (k MemberKind) Valid() bool { return k.DefaultRole() != "" }

// Member is an account registered as a patient or a medical officer.
type Member struct {
	Identity    auth.Identity
	Kind        MemberKind
	PhoneNumber string
}

// MemberProfile is the public view of a member.
type MemberProfile struct {
	Profile
	UserType    MemberKind `json:"userType"`
	PhoneNumber string     `json:"phoneNumber"`
}

func memberProfileOf(m Member) MemberProfile {
	return MemberProfile{Profile: ProfileOf(m.Identity), UserType: m.Kind, PhoneNumber: m.PhoneNumber}
}

// CreateMember provisions an account and registers it as kind. Without
// explicit roles the account gets the kind's default role.
func (s *Service) CreateMember(ctx context.Context, kind MemberKind, in NewAccount) (result.Outcome[MemberProfile], error) {
	if !kind.Valid() {
		return result.BadRequestf[MemberProfile]("unknown user type %q", kind), nil
	}
	phone := strings.TrimSpace(in.PhoneNumber)
	if phone == "" {
		return result.BadRequestf[MemberProfile]("phone number is required"), nil
	}
	if len(in.Roles) == 0 {
		in.Roles = []string{kind.DefaultRole()}
	}

	identity, rejected, err := s.newIdentity(ctx, in)
	if err != nil {
		return result.Outcome[MemberProfile]{}, err
	}
	if rejected != nil {
		return result.Recast[MemberProfile](*rejected), nil
	}
	created, err := s.store.CreateMember(ctx, Member{Identity: identity, Kind: kind, PhoneNumber: phone})
	if err != nil {
		return createFailed[MemberProfile](err)
	}
	return result.Succeeded(memberProfileOf(created)), nil
}

// Member looks up a member of the given kind. Accounts registered under the
// other kind, or not registered at all, are reported as not found.
func (s *Service) Member(ctx context.Context, kind MemberKind, userID string) (result.Outcome[MemberProfile], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return result.BadRequestf[MemberProfile]("UserId cannot be null or empty"), nil
	}
	m, err := s.store.FindMember(ctx, kind, userID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return result.NotFoundf[MemberProfile]("User not found"), nil
		}
		return result.Outcome[MemberProfile]{}, err
	}
	return result.Succeeded(memberProfileOf(m)), nil
}
