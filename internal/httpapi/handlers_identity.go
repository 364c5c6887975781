package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"energyexchange/internal/apperr"
	"energyexchange/internal/identity"
	"energyexchange/internal/safemath"
	"energyexchange/internal/wire"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	obj, err := readObject(r)
	if err != nil {
		writeError(w, err)
		return
	}
	username, _ := obj.Str("username")
	password, _ := obj.Str("password")

	if err := s.identity.Register(username, password); err != nil {
		writeError(w, err)
		return
	}
	writeEmpty(w, http.StatusNoContent)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	obj, err := readObject(r)
	if err != nil {
		writeError(w, err)
		return
	}
	username, _ := obj.Str("username")
	password, _ := obj.Str("password")

	token, err := s.identity.Login(username, password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeObject(w, http.StatusOK, wire.Object{
		{Name: "token", Value: wire.Str(token)},
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	username, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	obj, err := readObject(r)
	if err != nil {
		writeError(w, err)
		return
	}
	oldPassword, _ := obj.Str("old_password")
	newPassword, _ := obj.Str("new_password")

	if err := s.identity.ChangePassword(username, oldPassword, newPassword); err != nil {
		writeError(w, err)
		return
	}
	writeEmpty(w, http.StatusNoContent)
}

func (s *Server) handleSetCollateral(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticateAdmin(r); err != nil {
		writeError(w, err)
		return
	}
	username := mux.Vars(r)["username"]

	obj, err := readObject(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limitValue, ok := obj.Int("limit")
	if !ok {
		writeError(w, apperr.New(apperr.InvalidInput, "limit must be an integer"))
		return
	}

	limit := identity.Bounded(limitValue)
	if limitValue < 0 {
		limit = identity.Unlimited()
	}
	if err := s.identity.SetCollateral(username, limit); err != nil {
		writeError(w, err)
		return
	}
	writeEmpty(w, http.StatusNoContent)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	username, err := s.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	balance := s.ledger.Balance(username)
	limit := s.identity.CollateralLimit(username)
	potential := safemath.BigToInt64Saturate(s.engine.PotentialBalance(username))

	collateral := limit.Value
	if limit.Unlimited {
		collateral = -1
	}

	writeObject(w, http.StatusOK, wire.Object{
		{Name: "balance", Value: wire.Int(balance)},
		{Name: "potential_balance", Value: wire.Int(potential)},
		{Name: "collateral", Value: wire.Int(collateral)},
	})
}
