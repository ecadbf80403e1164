package commands

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	ta := newTestApp(t, nil)
	if err := ta.run("version"); err != nil {
		t.Fatal(err)
	}
	out := ta.stdout.String()
	if !strings.HasPrefix(out, "oaikit "+currentVersion().Version+"\n") || !strings.Contains(out, runtime.Version()) {
		t.Errorf("stdout = %q", out)
	}
}

func TestVersionJSON(t *testing.T) {
	ta := newTestApp(t, nil)
	if err := ta.run("version", "--json"); err != nil {
		t.Fatal(err)
	}
	var info map[string]string
	if err := json.Unmarshal(ta.stdout.Bytes(), &info); err != nil {
		t.Fatalf("stdout is not JSON: %v", err)
	}
	for _, key := range []string{"version", "commit", "buildDate", "goVersion", "platform"} {
		if info[key] == "" {
			t.Errorf("%s is empty", key)
		}
	}
	if info["platform"] != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("platform = %q", info["platform"])
	}
}
