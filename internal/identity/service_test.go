package identity

import "testing"

func TestRegisterLoginRoundTrip(t *testing.T) {
	s := New()
	if err := s.Register("alice", "hunter2"); err != nil {
		t.Fatal(err)
	}
	token, err := s.Login("alice", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	username, ok := s.ResolveToken(token)
	if !ok || username != "alice" {
		t.Fatalf("ResolveToken = %q, %v", username, ok)
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	s := New()
	_ = s.Register("alice", "hunter2")
	if err := s.Register("alice", "other"); err == nil {
		t.Fatal("expected conflict on duplicate registration")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := New()
	_ = s.Register("alice", "hunter2")
	if _, err := s.Login("alice", "wrong"); err == nil {
		t.Fatal("expected unauthorized on wrong password")
	}
}

func TestPasswordChangeInvalidatesOldTokens(t *testing.T) {
	s := New()
	_ = s.Register("alice", "hunter2")
	oldToken, _ := s.Login("alice", "hunter2")

	if err := s.ChangePassword("alice", "hunter2", "newpass"); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.ResolveToken(oldToken); ok {
		t.Fatal("expected old token to be invalidated after password change")
	}

	newToken, err := s.Login("alice", "newpass")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.ResolveToken(newToken); !ok {
		t.Fatal("expected new token to resolve")
	}
}

func TestCollateralDefaultUnlimited(t *testing.T) {
	s := New()
	_ = s.Register("alice", "hunter2")
	limit := s.CollateralLimit("alice")
	if !limit.Unlimited {
		t.Fatal("expected default collateral limit to be unlimited")
	}
}

func TestSetCollateralUnknownUser(t *testing.T) {
	s := New()
	if err := s.SetCollateral("ghost", Bounded(100)); err == nil {
		t.Fatal("expected not_found for unknown user")
	}
}
