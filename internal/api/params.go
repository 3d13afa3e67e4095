// SPDX-License-Identifier: MIT

package api

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/ManuGH/salesinsights/internal/insights"
	"github.com/ManuGH/salesinsights/internal/sales"
)

const maxLimit = 100

// intParam reads a positive integer query parameter. Missing means def.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, fmt.Errorf("%s must be an integer between 1 and %d", name, maxLimit)
	}
	return n, nil
}

// cityParam normalises the city filter and checks it against ds.
func cityParam(ds *sales.Dataset, raw string) (string, error) {
	city := strings.TrimSpace(raw)
	if sales.IsAllCities(city) {
		return sales.AllCities, nil
	}
	if !ds.HasCity || !slices.Contains(sales.Cities(ds), city) {
		return "", fmt.Errorf("%w: %q", insights.ErrUnknownCity, city)
	}
	return city, nil
}
