package config

import (
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mspro-labs/flat-watch/internal/aggregate"
)

const sampleConfig = `
search_url: http://portal.example/FlatSearch?lang=en
max_delay: 3s
query:
  Town: Toa Payoh
  dteBallot: "201511"
flat_types: ["5-Room", "3-Room"]
blocks:
  - name: 101A
    contract: C1
    flat_types: ["3-Room", "5-Room"]
expected_counts:
  - flat_type: 5-Room
    count: 151
  - flat_type: 3-Room
    count: 567
`

func TestParseSiteConfigDefaults(t *testing.T) {
	cfg, err := ParseSiteConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseSiteConfig failed: %v", err)
	}
	if cfg.Name != "availability" {
		t.Errorf("Name default: got %q", cfg.Name)
	}
	if cfg.Fetcher != "http" {
		t.Errorf("Fetcher default: got %q", cfg.Fetcher)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout default: got %v", cfg.RequestTimeout)
	}
	if cfg.MaxDelay != 3*time.Second {
		t.Errorf("MaxDelay: got %v", cfg.MaxDelay)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing search url",
			yaml: "flat_types: [3-Room]\nblocks: [{name: 101A, contract: C1, flat_types: [3-Room]}]",
			want: "search_url",
		},
		{
			name: "no blocks",
			yaml: "search_url: http://x\nflat_types: [3-Room]",
			want: "at least one block",
		},
		{
			name: "negative delay",
			yaml: "search_url: http://x\nmax_delay: -1s\nflat_types: [3-Room]\nblocks: [{name: 101A, contract: C1, flat_types: [3-Room]}]",
			want: "max_delay",
		},
		{
			name: "missing contract",
			yaml: "search_url: http://x\nflat_types: [3-Room]\nblocks: [{name: 101A, flat_types: [3-Room]}]",
			want: "no contract",
		},
		{
			name: "undeclared flat type",
			yaml: "search_url: http://x\nflat_types: [3-Room]\nblocks: [{name: 101A, contract: C1, flat_types: [4-Room]}]",
			want: "undeclared flat type",
		},
		{
			name: "duplicate block",
			yaml: "search_url: http://x\nflat_types: [3-Room]\nblocks: [{name: 101A, contract: C1}, {name: 101A, contract: C3}]",
			want: "listed twice",
		},
		{
			name: "duplicate flat type",
			yaml: "search_url: http://x\nflat_types: [3-Room, 3-Room]\nblocks: [{name: 101A, contract: C1}]",
			want: "declared twice",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSiteConfig([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("expected an error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestBuildSearchURL(t *testing.T) {
	cfg, err := ParseSiteConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseSiteConfig failed: %v", err)
	}

	raw, err := cfg.BuildSearchURL(cfg.Blocks[0], "3-Room")
	if err != nil {
		t.Fatalf("BuildSearchURL failed: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("built URL does not parse: %v", err)
	}
	if u.Host != "portal.example" || u.Path != "/FlatSearch" {
		t.Errorf("unexpected base URL: %s", raw)
	}

	q := u.Query()
	want := map[string]string{
		"lang":      "en",
		"Town":      "Toa Payoh",
		"dteBallot": "201511",
		"Block":     "101A",
		"Flat":      "3-Room",
		"Contract":  "C1",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("param %s: expected %q, got %q", k, v, got)
		}
	}
}

func TestExpectedSortedByFlatType(t *testing.T) {
	cfg, err := ParseSiteConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseSiteConfig failed: %v", err)
	}
	want := []aggregate.Count{{FlatType: "3-Room", Count: 567}, {FlatType: "5-Room", Count: 151}}
	if diff := cmp.Diff(want, cfg.Expected()); diff != "" {
		t.Errorf("Expected() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetAppConfig(t *testing.T) {
	// no .env here
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("DB_PATH", "")
	t.Setenv("CONFIG_PATH", "/etc/flat-watch/site.yaml")
	t.Setenv("OUTPUT_DIR", "")

	cfg, err := GetAppConfig()
	if err != nil {
		t.Fatalf("GetAppConfig failed: %v", err)
	}
	want := AppConfig{
		DBPath:     "./local-data/flat-watch.db",
		ConfigPath: "/etc/flat-watch/site.yaml",
		OutputDir:  "data",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("AppConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadBundledConfig(t *testing.T) {
	cfg, err := LoadSiteConfig("../../config.yaml")
	if err != nil {
		t.Fatalf("bundled config.yaml does not load: %v", err)
	}
	if cfg.Name != "bidadari" {
		t.Errorf("Name: got %q", cfg.Name)
	}
	if len(cfg.Blocks) != 13 {
		t.Errorf("expected 13 blocks, got %d", len(cfg.Blocks))
	}
	queries, total := 0, 0
	for _, b := range cfg.Blocks {
		queries += len(b.FlatTypes)
	}
	for _, e := range cfg.Expected() {
		total += e.Count
	}
	if queries != 28 {
		t.Errorf("expected 28 block/flat type queries, got %d", queries)
	}
	if total != 2139 {
		t.Errorf("expected 2139 units in the oracle, got %d", total)
	}
}
