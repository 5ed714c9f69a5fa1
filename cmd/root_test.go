package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/smartmap-fr/smartmap/internal/chat"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"years", "render", "export", "ask", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "smartmap", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCommand_Flags(t *testing.T) {
	tests := []struct {
		cmd  string
		flag string
		def  string
	}{
		{"render", "mode", "paris"},
		{"render", "year", "0"},
		{"render", "format", "json"},
		{"export", "format", "csv"},
		{"ask", "lang", ""},
		{"serve", "port", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.flag, func(t *testing.T) {
			c, _, err := rootCmd.Find([]string{tt.cmd})
			require.NoError(t, err)
			f := c.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

const fakeGeometry = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"c_arinsee":75107,"l_ar":"7ème Ardt"},
  "geometry":{"type":"Polygon","coordinates":[[[2.29,48.85],[2.33,48.85],[2.33,48.86],[2.29,48.85]]]}},
 {"type":"Feature","properties":{"c_arinsee":75119,"l_ar":"19ème Ardt"},
  "geometry":{"type":"Polygon","coordinates":[[[2.37,48.87],[2.41,48.87],[2.41,48.89],[2.37,48.87]]]}}
]}`

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/years/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"years":[2023,2024,2025]}`))
	})
	mux.HandleFunc("/api/arrondissements/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fakeGeometry))
	})
	mux.HandleFunc("/api/prices/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024", r.URL.Query().Get("year"))
		w.Write([]byte(`[{"arrondissement_code":"75107","avg_price_m2":14800,"transaction_count":310}]`))
	})
	mux.HandleFunc(chat.Path, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"Le 7e reste le plus cher."}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func useAPI(t *testing.T) {
	t.Helper()
	t.Setenv("SMARTMAP_API_BASE_URL", fakeAPI(t).URL)
	t.Setenv("SMARTMAP_LOG_LEVEL", "error")
}

func TestYearsCommand(t *testing.T) {
	useAPI(t)
	out, _, err := execute(t, "years")
	require.NoError(t, err)
	assert.Equal(t, "2023\n2024 (default)\n2025\n", out)
}

func TestRenderCommand_JSON(t *testing.T) {
	useAPI(t)
	out, stderr, err := execute(t, "render", "--mode", "paris", "--year", "0", "--format", "json", "-o", "")
	require.NoError(t, err)

	var style map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &style))
	assert.Equal(t, float64(8), style["version"])
	assert.Equal(t, "Paris 2024", style["name"])
	assert.Len(t, style["layers"], 2)
	assert.Contains(t, stderr, "2 regions (1 with price)")
}

func TestRenderCommand_YAMLFile(t *testing.T) {
	useAPI(t)
	path := filepath.Join(t.TempDir(), "style.yaml")
	_, _, err := execute(t, "render", "--mode", "paris", "--year", "2024", "--format", "yaml", "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var style map[string]any
	require.NoError(t, yaml.Unmarshal(data, &style))
	assert.Equal(t, 8, style["version"])
}

func TestRenderCommand_BadMode(t *testing.T) {
	useAPI(t)
	_, _, err := execute(t, "render", "--mode", "regions", "--year", "0", "--format", "json", "-o", "")
	assert.Error(t, err)
}

func TestExportCommand_CSV(t *testing.T) {
	useAPI(t)
	out, _, err := execute(t, "export", "--mode", "paris", "--year", "2024", "--format", "csv", "-o", "")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "code,name,avg_price_m2"))
	assert.True(t, strings.HasPrefix(lines[1], "75107,"))
	assert.True(t, strings.HasPrefix(lines[2], "75119,19ème Ardt,,,"))
}

func TestExportCommand_XLSXNeedsOutput(t *testing.T) {
	useAPI(t)
	_, _, err := execute(t, "export", "--mode", "paris", "--year", "2024", "--format", "xlsx", "-o", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
}

func TestAskCommand(t *testing.T) {
	useAPI(t)
	out, _, err := execute(t, "ask", "--lang", "fr", "Quel", "est", "le", "plus", "cher ?")
	require.NoError(t, err)
	assert.Equal(t, "> Quel est le plus cher ?\n< Le 7e reste le plus cher.\n", out)
}

func TestEncodeDocument_YAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	v := struct {
		MinPrice float64 `json:"min_price"`
	}{MinPrice: 700}
	require.NoError(t, encodeDocument(&buf, "yaml", v))
	assert.Equal(t, "min_price: 700\n", buf.String())
}
