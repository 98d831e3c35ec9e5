package mechs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	metadataField      = "metadata"
	metadataPrefixSize = 2
)

// Timestamp is a unix time in seconds, sent either as a number or as a string.
type Timestamp int64

// UnmarshalJSON accepts 123 and "123".
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	v, err := parseInt(b)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s", b)
	}
	*t = Timestamp(v)
	return nil
}

// Delivery of a request by a mech's service.
type Delivery struct {
	BlockTimestamp Timestamp `json:"blockTimestamp"`
}

// Service is the on-chain service backing a mech.
type Service struct {
	Metadata   []map[string]string `json:"metadata"`
	Deliveries []Delivery          `json:"deliveries,omitempty"`
}

// MetadataStr returns the metadata hash without its 0x prefix, nil if there is no metadata.
func (s Service) MetadataStr() *string {
	if len(s.Metadata) == 0 {
		return nil
	}
	m, ok := s.Metadata[0][metadataField]
	if !ok {
		return nil
	}
	if len(m) < metadataPrefixSize {
		m = ""
	} else {
		m = m[metadataPrefixSize:]
	}
	return &m
}

// LastDelivery returns the latest delivery timestamp, false if the service never delivered.
func (s Service) LastDelivery() (Timestamp, bool) {
	if len(s.Deliveries) == 0 {
		return 0, false
	}
	last := s.Deliveries[0].BlockTimestamp
	for _, d := range s.Deliveries[1:] {
		if d.BlockTimestamp > last {
			last = d.BlockTimestamp
		}
	}
	return last, true
}

// Tools is a set of tool names, encoded as a sorted list.
type Tools map[string]struct{}

// NewTools makes a set.
func NewTools(names ...string) Tools {
	tt := make(Tools, len(names))
	for _, n := range names {
		tt[n] = struct{}{}
	}
	return tt
}

// Has reports membership.
func (tt Tools) Has(name string) bool {
	_, ok := tt[name]
	return ok
}

// Sorted returns the names in order.
func (tt Tools) Sorted() []string {
	res := make([]string, 0, len(tt))
	for n := range tt {
		res = append(res, n)
	}
	sort.Strings(res)
	return res
}

// MarshalJSON encodes a sorted list.
func (tt Tools) MarshalJSON() ([]byte, error) {
	return json.Marshal(tt.Sorted())
}

// UnmarshalJSON decodes a list, dropping duplicates.
func (tt *Tools) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	*tt = NewTools(names...)
	return nil
}

// Info describes a mech as indexed by the marketplace subgraph.
type Info struct {
	ID               string  `json:"id"`
	Address          string  `json:"address"`
	Service          Service `json:"service"`
	Karma            int64   `json:"karma"`
	ReceivedRequests int64   `json:"received_requests"`
	SelfDelivered    int64   `json:"self_delivered"`
	MaxDeliveryRate  uint64  `json:"max_delivery_rate"`
	RelevantTools    Tools   `json:"relevant_tools"`
}

// aliases maps the snake_case fields to the camelCase names the subgraph uses.
var aliases = []struct{ snake, camel string }{
	{"received_requests", "receivedRequests"},
	{"self_delivered", "selfDeliveredFromReceived"},
	{"max_delivery_rate", "maxDeliveryRate"},
}

// UnmarshalJSON reconciles the camelCase aliases. A non-zero snake_case
// value wins, integers may be sent as strings.
func (m *Info) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var res Info
	if err := unmarshalOptional(raw, "id", &res.ID); err != nil {
		return err
	}
	if err := unmarshalOptional(raw, "address", &res.Address); err != nil {
		return err
	}
	if err := unmarshalOptional(raw, "service", &res.Service); err != nil {
		return err
	}
	if err := unmarshalOptional(raw, "relevant_tools", &res.RelevantTools); err != nil {
		return err
	}
	if res.RelevantTools == nil {
		res.RelevantTools = Tools{}
	}

	fieldErr := func(field string, v json.RawMessage) error {
		return fmt.Errorf("unexpected non-int value %s received as %q for mech with id %s", v, field, res.ID)
	}
	if v, ok := raw["karma"]; ok {
		karma, err := parseInt(v)
		if err != nil {
			return fieldErr("karma", v)
		}
		res.Karma = karma
	}

	counts := make(map[string]int64, len(aliases))
	for _, a := range aliases {
		if v, ok := raw[a.snake]; ok {
			n, err := parseInt(v)
			if err != nil {
				return fieldErr(a.snake, v)
			}
			if n != 0 {
				counts[a.snake] = n
				continue
			}
		}
		if v, ok := raw[a.camel]; ok {
			n, err := parseInt(v)
			if err != nil {
				return fieldErr(a.snake, v)
			}
			counts[a.snake] = n
		}
	}
	res.ReceivedRequests = counts["received_requests"]
	res.SelfDelivered = counts["self_delivered"]
	if counts["max_delivery_rate"] < 0 || res.ReceivedRequests < 0 || res.SelfDelivered < 0 {
		return fmt.Errorf("negative count received for mech with id %s", res.ID)
	}
	res.MaxDeliveryRate = uint64(counts["max_delivery_rate"])

	*m = res
	return nil
}

// EmptyMetadata reports whether the mech has no metadata, making it ineligible.
func (m *Info) EmptyMetadata() bool {
	return m.Service.MetadataStr() == nil
}

// DeliveredRatio is self-delivered over received requests, 0 without requests.
func (m *Info) DeliveredRatio() float64 {
	if m.ReceivedRequests == 0 {
		return 0
	}
	return float64(m.SelfDelivered) / float64(m.ReceivedRequests)
}

// Infos is a list of mechs.
type Infos []*Info

// ParseInfos decodes a JSON list.
func ParseInfos(s string) (Infos, error) {
	var res Infos
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return nil, err
	}
	return res, nil
}

// String encodes a JSON list.
func (mm Infos) String() string {
	if mm == nil {
		mm = Infos{}
	}
	b, err := json.Marshal(mm)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalOptional(raw map[string]json.RawMessage, key string, to interface{}) error {
	v, ok := raw[key]
	if !ok || bytes.Equal(v, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(v, to); err != nil {
		return fmt.Errorf("field %q: %v", key, err)
	}
	return nil
}

// parseInt accepts a JSON integer or a string holding one.
func parseInt(v json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(v))
	if strings.HasPrefix(s, `"`) {
		var unq string
		if err := json.Unmarshal(v, &unq); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(unq)
	}
	return strconv.ParseInt(s, 10, 64)
}
