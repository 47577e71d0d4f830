// internal/publisher/topics.go
package publisher

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tamzrod/erv-bridge/internal/poller"
)

// Topics is the topic layout under one prefix.
type Topics struct {
	Telemetry string // JSON snapshot
	Connected string // "true"/"false", retained
	Bridge    string // "online"/"offline", retained, last will
	SetFanSup string
	SetFanExh string
	SetPower  string
}

func NewTopics(prefix string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	return Topics{
		Telemetry: prefix + "/telemetry",
		Connected: prefix + "/connected",
		Bridge:    prefix + "/bridge",
		SetFanSup: prefix + "/set/fan/supply",
		SetFanExh: prefix + "/set/fan/exhaust",
		SetPower:  prefix + "/set/power",
	}
}

// Commands returns the topics the bridge subscribes to.
func (t Topics) Commands() []string {
	return []string{t.SetFanSup, t.SetFanExh, t.SetPower}
}

type commandKind uint8

const (
	cmdFan commandKind = iota + 1
	cmdPower
)

type command struct {
	kind commandKind
	side poller.Side
	pct  int
	on   bool
}

func (c command) String() string {
	if c.kind == cmdPower {
		return fmt.Sprintf("power %t", c.on)
	}
	return fmt.Sprintf("fan %s %d%%", c.side, c.pct)
}

// parseCommand maps a command topic and its payload. Fan payloads are a
// bare integer percentage or {"percent":n}; power payloads are
// on/off/true/false/1/0 or {"on":bool}.
func (t Topics) parseCommand(topic string, payload []byte) (command, error) {
	body := strings.TrimSpace(string(payload))

	switch topic {
	case t.SetFanSup, t.SetFanExh:
		side := poller.Supply
		if topic == t.SetFanExh {
			side = poller.Exhaust
		}
		pct, err := parsePercent(body)
		if err != nil {
			return command{}, err
		}
		return command{kind: cmdFan, side: side, pct: pct}, nil

	case t.SetPower:
		on, err := parseOnOff(body)
		if err != nil {
			return command{}, err
		}
		return command{kind: cmdPower, on: on}, nil
	}
	return command{}, fmt.Errorf("publisher: unexpected topic %q", topic)
}

func parsePercent(body string) (int, error) {
	if strings.HasPrefix(body, "{") {
		var req struct {
			Percent *int `json:"percent"`
		}
		if err := json.Unmarshal([]byte(body), &req); err != nil || req.Percent == nil {
			return 0, fmt.Errorf("publisher: bad fan payload %q", body)
		}
		return *req.Percent, nil
	}
	pct, err := strconv.Atoi(body)
	if err != nil {
		return 0, fmt.Errorf("publisher: bad fan payload %q", body)
	}
	return pct, nil
}

func parseOnOff(body string) (bool, error) {
	if strings.HasPrefix(body, "{") {
		var req struct {
			On *bool `json:"on"`
		}
		if err := json.Unmarshal([]byte(body), &req); err != nil || req.On == nil {
			return false, fmt.Errorf("publisher: bad power payload %q", body)
		}
		return *req.On, nil
	}
	switch strings.ToLower(body) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("publisher: bad power payload %q", body)
}
