// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tamzrod/erv-bridge/internal/poller"
	"github.com/tamzrod/erv-bridge/internal/registers"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.Snapshot())
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.Link())
}

type fanRequest struct {
	Percent *int `json:"percent"`
}

func (s *Server) handleSetFan(w http.ResponseWriter, r *http.Request) {
	side, err := poller.ParseSide(mux.Vars(r)["side"])
	if err != nil {
		respondError(w, badRequest{err})
		return
	}

	var req fanRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Percent == nil {
		respondError(w, badRequest{fmt.Errorf("percent required")})
		return
	}

	if err := s.svc.SetFanSpeed(r.Context(), side, *req.Percent); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.svc.Snapshot())
}

type powerRequest struct {
	On *bool `json:"on"`
}

func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	var req powerRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.On == nil {
		respondError(w, badRequest{fmt.Errorf("on required")})
		return
	}

	if err := s.svc.SetSystemPower(r.Context(), *req.On); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.svc.Snapshot())
}

// registerInfo is the JSON view of one register definition.
type registerInfo struct {
	Address     uint16            `json:"address"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Access      string            `json:"access"`
	Encoding    string            `json:"encoding"`
	Scale       string            `json:"scale"`
	Unit        string            `json:"unit,omitempty"`
	Min         *float64          `json:"min,omitempty"`
	Max         *float64          `json:"max,omitempty"`
	Bits        map[string]string `json:"bits,omitempty"`
	Values      []float64         `json:"values,omitempty"`
}

func infoFor(d registers.RegisterDef) registerInfo {
	info := registerInfo{
		Address:     d.Address,
		Name:        d.Name,
		Description: d.Description,
		Access:      d.Access.String(),
		Encoding:    d.Encoding.String(),
		Scale:       d.Scale.String(),
		Unit:        d.Unit,
		Values:      d.Values,
	}
	if d.Range != nil {
		lo, hi := d.Range.Min, d.Range.Max
		info.Min, info.Max = &lo, &hi
	}
	if len(d.Bits) > 0 {
		info.Bits = make(map[string]string, len(d.Bits))
		for _, b := range d.Bits {
			info.Bits[strconv.Itoa(int(b.Position))] = b.Name
		}
	}
	return info
}

func (s *Server) handleListRegisters(w http.ResponseWriter, r *http.Request) {
	regs := s.svc.Registers()
	defs := regs.Defs()

	out := make([]registerInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, infoFor(d))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"profile":   regs.Profile(),
		"registers": out,
	})
}

type registerReading struct {
	Name  string          `json:"name"`
	Raw   uint16          `json:"raw"`
	Value registers.Value `json:"value"`
	Unit  string          `json:"unit,omitempty"`
}

func (s *Server) handleReadRegister(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	raw, v, err := s.svc.ReadRegister(r.Context(), name)
	if err != nil {
		respondError(w, err)
		return
	}

	def, _ := s.svc.Registers().Lookup(name)
	respondJSON(w, http.StatusOK, registerReading{Name: name, Raw: raw, Value: v, Unit: def.Unit})
}

type writeRequest struct {
	Value json.RawMessage `json:"value"`
}

func (s *Server) handleWriteRegister(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	def, err := s.svc.Registers().Lookup(name)
	if err != nil {
		respondError(w, err)
		return
	}

	var req writeRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	v, err := valueFromJSON(def, req.Value)
	if err != nil {
		respondError(w, badRequest{err})
		return
	}

	if err := s.svc.WriteRegister(r.Context(), name, v); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"name": name, "value": v})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest{fmt.Errorf("invalid JSON: %w", err)}
	}
	return nil
}

// valueFromJSON accepts a number, bool, string or (for bitfields) an
// object of flag names.
func valueFromJSON(def registers.RegisterDef, raw json.RawMessage) (registers.Value, error) {
	if len(raw) == 0 {
		return registers.Value{}, fmt.Errorf("value required")
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return registers.ParseValue(def, str)
	}

	if def.Encoding == registers.Bitfield {
		var flags map[string]bool
		if err := json.Unmarshal(raw, &flags); err != nil {
			return registers.Value{}, fmt.Errorf("%s expects an object of flags", def.Name)
		}
		return registers.FlagSet(registers.Flags(flags)), nil
	}

	return registers.ParseValue(def, string(raw))
}
