package security

import "testing"

func TestPasswordStrengthOrdering(t *testing.T) {
	if got := PasswordStrength(""); got != 0 {
		t.Fatalf("empty password must score 0, got %d", got)
	}

	weak := PasswordStrength("Summer2024!")
	if weak >= MinPasswordScore {
		t.Fatalf("dictionary password scored %d, expected below %d", weak, MinPasswordScore)
	}

	strong := PasswordStrength("vX9#Tq2$wL7p")
	if strong < MinPasswordScore {
		t.Fatalf("random password scored %d, expected at least %d", strong, MinPasswordScore)
	}
}

func TestPasswordStrengthPenalizesUserInputs(t *testing.T) {
	email := "gamer@example.com"

	without := PasswordStrength(email)
	with := PasswordStrength(email, email, "gamer")

	if with > without {
		t.Fatalf("user inputs must not raise the score: %d > %d", with, without)
	}
	if with >= MinPasswordScore {
		t.Fatalf("password equal to the email scored %d, expected below %d", with, MinPasswordScore)
	}
}
