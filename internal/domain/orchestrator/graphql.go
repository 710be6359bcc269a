package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"

	"bizdash-go/internal/domain/failure"
)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage            `json:"data"`
	Errors []failure.GraphQLErrorItem `json:"errors"`
}

func encodeRequest(query string, variables map[string]any) ([]byte, error) {
	return sonic.Marshal(graphqlRequest{Query: query, Variables: variables})
}

// decodeResponse returns data, or a *failure.GraphQLError when the
// envelope carried errors.
func decodeResponse(body []byte) (json.RawMessage, error) {
	var resp graphqlResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, &failure.GraphQLError{Errors: resp.Errors}
	}
	if len(resp.Data) == 0 {
		return json.RawMessage("null"), nil
	}
	return resp.Data, nil
}
