package domain

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// TargetKind discriminates the target spec variants
type TargetKind string

const (
	TargetKindAll        TargetKind = "all"
	TargetKindDepartment TargetKind = "department"
	TargetKindRoles      TargetKind = "roles"
	TargetKindUsers      TargetKind = "users"
)

// Target is the sealed set of audience targeting variants. Resolution happens
// at dispatch time only; directory membership changes between rule creation
// and firing.
type Target interface {
	Kind() TargetKind
}

// AllTarget addresses every active directory user
type AllTarget struct{}

func (AllTarget) Kind() TargetKind { return TargetKindAll }

// DepartmentTarget addresses the active employees of one department
type DepartmentTarget struct {
	DepartmentID string
}

func (DepartmentTarget) Kind() TargetKind { return TargetKindDepartment }

// RolesTarget addresses every active user holding one of the roles
type RolesTarget struct {
	Roles []string
}

func (RolesTarget) Kind() TargetKind { return TargetKindRoles }

// UsersTarget addresses an explicit user list, active or not
type UsersTarget struct {
	UserIDs []string
}

func (UsersTarget) Kind() TargetKind { return TargetKindUsers }

// TargetSpec wraps a Target variant so items can embed it as a plain field
// while still round-tripping through BSON and JSON with a kind discriminator.
type TargetSpec struct {
	target Target
}

// NewTargetSpec wraps a variant
func NewTargetSpec(t Target) TargetSpec {
	return TargetSpec{target: t}
}

// Target returns the wrapped variant, nil if the spec was never set
func (s TargetSpec) Target() Target {
	return s.target
}

// Validate checks that the spec carries a well-formed variant
func (s TargetSpec) Validate() error {
	switch t := s.target.(type) {
	case AllTarget:
		return nil
	case DepartmentTarget:
		if t.DepartmentID == "" {
			return fmt.Errorf("department target requires a department id")
		}
		return nil
	case RolesTarget:
		if len(t.Roles) == 0 {
			return fmt.Errorf("roles target requires at least one role")
		}
		return nil
	case UsersTarget:
		return nil
	case nil:
		return fmt.Errorf("target is required")
	default:
		return fmt.Errorf("unknown target kind %q", t.Kind())
	}
}

// targetEnvelope is the persisted shape of a target spec
type targetEnvelope struct {
	Kind         TargetKind `bson:"kind" json:"kind"`
	DepartmentID string     `bson:"departmentId,omitempty" json:"department_id,omitempty"`
	Roles        []string   `bson:"roles,omitempty" json:"roles,omitempty"`
	UserIDs      []string   `bson:"userIds,omitempty" json:"user_ids,omitempty"`
}

func (s TargetSpec) envelope() (targetEnvelope, error) {
	switch t := s.target.(type) {
	case AllTarget:
		return targetEnvelope{Kind: TargetKindAll}, nil
	case DepartmentTarget:
		return targetEnvelope{Kind: TargetKindDepartment, DepartmentID: t.DepartmentID}, nil
	case RolesTarget:
		return targetEnvelope{Kind: TargetKindRoles, Roles: t.Roles}, nil
	case UsersTarget:
		return targetEnvelope{Kind: TargetKindUsers, UserIDs: t.UserIDs}, nil
	case nil:
		return targetEnvelope{}, fmt.Errorf("cannot encode empty target spec")
	default:
		return targetEnvelope{}, fmt.Errorf("cannot encode target kind %q", t.Kind())
	}
}

func (s *TargetSpec) fromEnvelope(env targetEnvelope) error {
	switch env.Kind {
	case TargetKindAll:
		s.target = AllTarget{}
	case TargetKindDepartment:
		s.target = DepartmentTarget{DepartmentID: env.DepartmentID}
	case TargetKindRoles:
		s.target = RolesTarget{Roles: env.Roles}
	case TargetKindUsers:
		s.target = UsersTarget{UserIDs: env.UserIDs}
	default:
		return fmt.Errorf("unknown target kind %q", env.Kind)
	}
	return nil
}

// MarshalBSONValue implements bson.ValueMarshaler
func (s TargetSpec) MarshalBSONValue() (bsontype.Type, []byte, error) {
	env, err := s.envelope()
	if err != nil {
		return 0, nil, err
	}
	return bson.MarshalValue(env)
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (s *TargetSpec) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var env targetEnvelope
	if err := bson.UnmarshalValue(t, data, &env); err != nil {
		return err
	}
	return s.fromEnvelope(env)
}

// MarshalJSON implements json.Marshaler
func (s TargetSpec) MarshalJSON() ([]byte, error) {
	env, err := s.envelope()
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// UnmarshalJSON implements json.Unmarshaler
func (s *TargetSpec) UnmarshalJSON(data []byte) error {
	var env targetEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	return s.fromEnvelope(env)
}
