package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	cache "github.com/krisalay/storefront-cache"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

// statsCmd reads cache statistics from a running server.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics of a running storefront server",
	Long: `Fetch /v1/cache/stats from a running storefront server and print it as a table.

Examples:
  storefront stats --url http://localhost:8080`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		colors, _ := s.useColors()
		color.NoColor = !colors

		ctx, cancel := context.WithTimeout(cmd.Context(), s.PlatformTimeout)
		defer cancel()

		stats, err := fetchStats(ctx, http.DefaultClient, s.URL)
		if err != nil {
			return err
		}
		return writeStatsTable(cmd.OutOrStdout(), stats)
	},
}

type statsResponse struct {
	Stats    cache.Stats `json:"stats"`
	HitRatio float64     `json:"hitRatio"`
}

func fetchStats(ctx context.Context, hc *http.Client, baseURL string) (*statsResponse, error) {
	u := strings.TrimRight(baseURL, "/") + "/v1/cache/stats"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid --url: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch stats: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &out, nil
}

func hitRatioLabel(r float64) string {
	s := strconv.FormatFloat(r*100, 'f', 1, 64) + "%"
	switch {
	case r >= 0.8:
		return color.New(color.FgGreen).Sprint(s)
	case r >= 0.5:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.FgRed).Sprint(s)
	}
}

func writeStatsTable(w io.Writer, s *statsResponse) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	st := s.Stats
	data := [][]string{
		{"Entries", strconv.Itoa(st.Size)},
		{"Platform requests", strconv.FormatUint(st.RequestCount, 10)},
		{"Pending", strconv.Itoa(st.PendingRequests)},
		{"Hits", strconv.FormatUint(st.Hits, 10)},
		{"Misses", strconv.FormatUint(st.Misses, 10)},
		{"Hit ratio", hitRatioLabel(s.HitRatio)},
		{"Coalesced", strconv.FormatUint(st.Coalesced, 10)},
		{"Expired", strconv.FormatUint(st.Expired, 10)},
		{"Evictions", strconv.FormatUint(st.Evictions, 10)},
	}
	for _, r := range slices.Sorted(maps.Keys(st.Requests)) {
		data = append(data, []string{"Requests: " + r, strconv.FormatUint(st.Requests[r], 10)})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if len(st.Keys) > 0 {
		_, err := fmt.Fprintf(w, "Keys: %s\n", strings.Join(st.Keys, ", "))
		return err
	}
	return nil
}
