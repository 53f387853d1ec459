package model

import "testing"

func TestUserTypeValid(t *testing.T) {
	tests := []struct {
		value UserType
		want  bool
	}{
		{UserTypePatient, true},
		{UserTypeDoctor, true},
		{UserType("admin"), false},
		{UserType("Patient"), false}, // case-sensitive
		{UserType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.value), func(t *testing.T) {
			if got := tt.value.Valid(); got != tt.want {
				t.Errorf("UserType(%q).Valid() = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestDisplayLabel(t *testing.T) {
	a := &Account{
		Profile: Profile{
			UserType:  UserTypePatient,
			FirstName: "Alice",
			LastName:  "Doe",
		},
	}

	if got, want := a.DisplayLabel(), "Alice Doe (patient)"; got != want {
		t.Errorf("DisplayLabel() = %q, want %q", got, want)
	}
}
