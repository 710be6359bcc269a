package failure

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"syscall"

	"github.com/tidwall/gjson"
)

const cancelledMessage = "request cancelled"

// Classify maps err onto the taxonomy. It performs no I/O and returns the
// same Classification for equal inputs. A nil error yields the zero value.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}

	var he *HTTPError
	if errors.As(err, &he) {
		return classifyHTTP(he)
	}

	var ge *GraphQLError
	if errors.As(err, &ge) {
		return classifyGraphQL(ge)
	}

	// Deadline before cancellation: a fired deadline also cancels the context.
	if errors.Is(err, context.DeadlineExceeded) {
		return build(KindTimeout, "")
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return build(KindTimeout, "")
	}
	if errors.Is(err, context.Canceled) {
		return Classification{Kind: KindUnknown, UserMessage: cancelledMessage}
	}

	if isNetwork(err) {
		return build(KindNetwork, "")
	}
	return build(KindUnknown, "")
}

func isNetwork(err error) bool {
	if errors.Is(err, ErrOffline) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func build(kind Kind, message string) Classification {
	if message == "" {
		message = DefaultMessage(kind)
	}
	return Classification{
		Kind:        kind,
		UserMessage: message,
		Retryable:   kind.Retryable(),
	}
}

func classifyHTTP(he *HTTPError) Classification {
	message, fields := parseErrorBody(he.Body)

	var c Classification
	switch {
	case he.Status == http.StatusUnauthorized:
		c = build(KindUnauthorized, message)
	case he.Status == http.StatusForbidden:
		c = build(KindForbidden, message)
	case he.Status == http.StatusUnprocessableEntity,
		he.Status == http.StatusBadRequest && len(fields) > 0:
		c = build(KindValidation, message)
		c.ValidationFields = fields
	case he.Status == http.StatusTooManyRequests:
		c = build(KindRateLimited, message)
		c.RetryAfter = he.RetryAfter
	case he.Status == http.StatusRequestTimeout, he.Status == http.StatusGatewayTimeout:
		c = build(KindTimeout, "")
	case he.Status >= 500 && he.Status <= 599:
		c = build(KindServer, "")
	default:
		c = build(KindUnknown, message)
	}
	c.Status = he.Status
	return c
}

// parseErrorBody reads {message, errors: {field: [msg, ...]}}. Either part
// may be missing; non-JSON bodies yield nothing.
func parseErrorBody(body []byte) (string, map[string]string) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return "", nil
	}
	root := gjson.ParseBytes(body)
	message := strings.TrimSpace(root.Get("message").String())

	errs := root.Get("errors")
	if !errs.IsObject() {
		return message, nil
	}
	fields := make(map[string]string)
	errs.ForEach(func(key, value gjson.Result) bool {
		if msg := firstMessage(value); msg != "" {
			fields[key.String()] = msg
		}
		return true
	})
	if len(fields) == 0 {
		return message, nil
	}
	return message, fields
}

func firstMessage(v gjson.Result) string {
	if v.IsArray() {
		for _, item := range v.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				return s
			}
		}
		return ""
	}
	return strings.TrimSpace(v.String())
}

func classifyGraphQL(ge *GraphQLError) Classification {
	if len(ge.Errors) == 0 {
		return build(KindUnknown, "")
	}

	// The most severe entry decides the kind.
	best := Classification{}
	rank := -1
	for _, item := range ge.Errors {
		c := classifyGraphQLItem(item)
		if r := graphqlRank[c.Kind]; r > rank {
			best, rank = c, r
		}
	}
	return best
}

var graphqlRank = map[Kind]int{
	KindUnknown:      0,
	KindValidation:   1,
	KindForbidden:    2,
	KindUnauthorized: 3,
}

func classifyGraphQLItem(item GraphQLErrorItem) Classification {
	category := strings.ToLower(extString(item.Extensions, "category"))
	code := strings.ToUpper(extString(item.Extensions, "code"))
	message := strings.TrimSpace(item.Message)

	switch {
	case category == "authentication" || code == "UNAUTHENTICATED":
		return build(KindUnauthorized, "")
	case category == "authorization" || code == "FORBIDDEN":
		return build(KindForbidden, "")
	case category == "validation" || code == "BAD_USER_INPUT":
		c := build(KindValidation, message)
		c.ValidationFields = validationFields(item.Extensions["validation"])
		return c
	default:
		return build(KindUnknown, message)
	}
}

func extString(ext map[string]any, key string) string {
	if ext == nil {
		return ""
	}
	s, _ := ext[key].(string)
	return s
}

// validationFields flattens {"input.email": ["taken"]} into field → first
// message, stripping the "input." prefix that resolvers add.
func validationFields(raw any) map[string]string {
	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(map[string]string, len(m))
	for _, k := range keys {
		field := strings.TrimPrefix(k, "input.")
		switch v := m[k].(type) {
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					fields[field] = s
					break
				}
			}
		case string:
			if v != "" {
				fields[field] = v
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
