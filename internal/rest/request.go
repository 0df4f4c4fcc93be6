package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"ridefuture-be/internal/utils"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst. On failure it writes a 400
// and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			utils.WriteJSONError(w, "request body is empty", http.StatusBadRequest)
			return false
		}
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, ok := utils.ParseID(r.PathValue("id"))
	if !ok {
		utils.WriteJSONError(w, what+" not found", http.StatusNotFound)
	}
	return id, ok
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func queryDecimal(q url.Values, key string) (*decimal.Decimal, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func queryBool(q url.Values, key string) *bool {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// Page is the paginated list envelope.
type Page[T any] struct {
	Links       PageLinks `json:"links"`
	Count       int       `json:"count"`
	TotalPages  int       `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
	Results     []T       `json:"results"`
}

type PageLinks struct {
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

func newPage[T any](r *http.Request, p utils.Pagination, items []T, count int) Page[T] {
	if items == nil {
		items = []T{}
	}
	next, prev := p.PageLinks(absoluteURL(r), count)
	return Page[T]{
		Links:       PageLinks{Next: next, Previous: prev},
		Count:       count,
		TotalPages:  p.TotalPages(count),
		CurrentPage: p.Page,
		Results:     items,
	}
}

func absoluteURL(r *http.Request) *url.URL {
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			u.Scheme = "https"
		}
	}
	return &u
}
