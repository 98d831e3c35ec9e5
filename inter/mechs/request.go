package mechs

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UnknownError is the error of a response nobody answered yet.
const UnknownError = "Unknown"

// Metadata describes one compute request waiting to be sent.
type Metadata struct {
	Prompt string `json:"prompt"`
	Tool   string `json:"tool"`
	Nonce  string `json:"nonce"`
}

// Request is a request as tracked on-chain.
type Request struct {
	Data        string     `json:"data"`
	RequestID   *big.Int   `json:"requestId"`
	RequestIDs  []*big.Int `json:"requestIds"`
	NumRequests int        `json:"numRequests"`
}

// InteractionResponse is the placeholder of a request's answer, filled in
// once the mech replies.
type InteractionResponse struct {
	Request
	Nonce         string        `json:"nonce"`
	Result        *string       `json:"result"`
	Error         string        `json:"error"`
	ResponseData  hexutil.Bytes `json:"response_data"`
	SenderAddress *string       `json:"sender_address"`
}

// NewInteractionResponse makes a pending response for a published request.
func NewInteractionResponse(nonce, data string) *InteractionResponse {
	return &InteractionResponse{
		Request: Request{
			Data:       data,
			RequestID:  new(big.Int),
			RequestIDs: []*big.Int{},
		},
		Nonce: nonce,
		Error: UnknownError,
	}
}

// UnmarshalJSON defaults the error to UnknownError.
func (r *InteractionResponse) UnmarshalJSON(b []byte) error {
	type plain InteractionResponse
	p := plain{Error: UnknownError}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = InteractionResponse(p)
	return nil
}

// RetriesExceeded records that the mech never answered.
func (r *InteractionResponse) RetriesExceeded() {
	r.Error = "Retries were exceeded while trying to get the mech's response."
}

// IncorrectFormat records an unparsable answer.
func (r *InteractionResponse) IncorrectFormat(res interface{}) {
	r.Error = fmt.Sprintf("The response's format was unexpected: %v", res)
}

// ParseMetadata decodes a JSON list of requests.
func ParseMetadata(s string) ([]Metadata, error) {
	var res []Metadata
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return nil, err
	}
	return res, nil
}

// ParseResponses decodes a JSON list of responses.
func ParseResponses(s string) ([]*InteractionResponse, error) {
	var res []*InteractionResponse
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Serialize encodes v as JSON, "[]" for an empty list.
func Serialize(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}
