package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"liqrun/internal/session"
)

var errMalformedRequest = errors.New("malformed request")

type startRequest struct {
	Player  string  `json:"player"`
	ChainID *uint64 `json:"chainId"`
}

func (r startRequest) Validate() error {
	if err := validatePlayer(r.Player); err != nil {
		return err
	}
	return validateChainID(r.ChainID)
}

func (r startRequest) input() session.StartInput {
	return session.StartInput{Player: r.Player, ChainID: derefChain(r.ChainID)}
}

type heartbeatRequest struct {
	Token string `json:"token"`
}

func (r heartbeatRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("%w: token is required", errMalformedRequest)
	}
	return nil
}

type finishRequest struct {
	Token   string  `json:"token"`
	Player  string  `json:"player"`
	ChainID *uint64 `json:"chainId"`
}

func (r finishRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("%w: token is required", errMalformedRequest)
	}
	if err := validatePlayer(r.Player); err != nil {
		return err
	}
	return validateChainID(r.ChainID)
}

func (r finishRequest) input() session.FinishInput {
	return session.FinishInput{Token: r.Token, Player: r.Player, ChainID: derefChain(r.ChainID)}
}

func validatePlayer(player string) error {
	if _, err := session.NormalizePlayer(player); err != nil {
		return fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	return nil
}

func validateChainID(id *uint64) error {
	if id != nil && *id == 0 {
		return fmt.Errorf("%w: chainId must be positive", errMalformedRequest)
	}
	return nil
}

func derefChain(id *uint64) uint64 {
	if id == nil {
		return 0
	}
	return *id
}

type validator interface {
	Validate() error
}

// decodeRequest reads exactly one JSON object with no unknown fields and
// validates it.
func decodeRequest(r *http.Request, out validator) error {
	if err := decodeJSON(r, out); err != nil {
		return fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	return out.Validate()
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON object")
	}
	return nil
}
