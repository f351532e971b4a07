package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"gps-report/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// queryList returns every value of key, also splitting comma-separated
// values: ?type=a&type=b and ?type=a,b are equivalent.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, domain.ErrValidation("%s: %q is not a boolean", key, v)
	}
	return b, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.ErrValidation("%s: %q is not an integer", key, v)
	}
	return n, nil
}

// pageFromQuery extracts a PageRequest from optional max_results/page_token params.
func pageFromQuery(r *http.Request) (domain.PageRequest, error) {
	n, err := queryInt(r, "max_results")
	if err != nil {
		return domain.PageRequest{}, err
	}
	return domain.PageRequest{MaxResults: n, PageToken: r.URL.Query().Get("page_token")}, nil
}
