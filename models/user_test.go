package models

import (
	"testing"

	"bitbucket.org/travelshield/portal_backend/utils"
)

func TestPasswordMatches(t *testing.T) {
	hashed, err := utils.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !passwordMatches(string(hashed), "s3cret") {
		t.Error("correct password should match")
	}
	if passwordMatches(string(hashed), "wrong") {
		t.Error("wrong password must not match")
	}
	// A stored hash bcrypt cannot decode errors differently from a plain
	// mismatch; it must still read as a failed login.
	if passwordMatches("not-a-bcrypt-hash", "s3cret") {
		t.Error("an undecodable stored hash must not match")
	}
	if passwordMatches("", "s3cret") {
		t.Error("an empty stored hash must not match")
	}
}

func TestShouldSeedBootstrapAdmin(t *testing.T) {
	cases := []struct {
		count    int64
		username string
		password string
		want     bool
	}{
		{0, "root", "pw", true},
		{1, "root", "pw", false},
		{0, "", "pw", false},
		{0, "root", "", false},
	}
	for _, tc := range cases {
		if got := shouldSeedBootstrapAdmin(tc.count, tc.username, tc.password); got != tc.want {
			t.Errorf("shouldSeedBootstrapAdmin(%d, %q, %q) = %v, want %v",
				tc.count, tc.username, tc.password, got, tc.want)
		}
	}
}
