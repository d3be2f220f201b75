package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// itemDoc stands in for the item types that embed a target spec
type itemDoc struct {
	Target TargetSpec `bson:"target" json:"target"`
}

func TestTargetSpec_BSONRoundTrip(t *testing.T) {
	variants := map[string]Target{
		"all":        AllTarget{},
		"department": DepartmentTarget{DepartmentID: "dep-42"},
		"roles":      RolesTarget{Roles: []string{"hr_admin", "manager"}},
		"users":      UsersTarget{UserIDs: []string{"u1", "u2"}},
	}

	for name, target := range variants {
		t.Run(name, func(t *testing.T) {
			raw, err := bson.Marshal(itemDoc{Target: NewTargetSpec(target)})
			require.NoError(t, err)

			var decoded itemDoc
			require.NoError(t, bson.Unmarshal(raw, &decoded))
			assert.Equal(t, target, decoded.Target.Target())
		})
	}
}

func TestTargetSpec_JSONRoundTrip(t *testing.T) {
	spec := NewTargetSpec(DepartmentTarget{DepartmentID: "dep-42"})

	raw, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"department","department_id":"dep-42"}`, string(raw))

	var decoded TargetSpec
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, DepartmentTarget{DepartmentID: "dep-42"}, decoded.Target())
}

func TestTargetSpec_UnknownKindRejected(t *testing.T) {
	var decoded TargetSpec
	err := json.Unmarshal([]byte(`{"kind":"everyone"}`), &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target kind")
}

func TestTargetSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    TargetSpec
		wantErr bool
	}{
		{"all", NewTargetSpec(AllTarget{}), false},
		{"department", NewTargetSpec(DepartmentTarget{DepartmentID: "dep-1"}), false},
		{"department without id", NewTargetSpec(DepartmentTarget{}), true},
		{"roles", NewTargetSpec(RolesTarget{Roles: []string{"manager"}}), false},
		{"roles empty", NewTargetSpec(RolesTarget{}), true},
		{"users may be empty", NewTargetSpec(UsersTarget{}), false},
		{"unset spec", TargetSpec{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
