package guard

import (
	"strings"
	"testing"
)

func TestGuard_CheckFile(t *testing.T) {
	g := New(Policy{
		AllowedFileGlobs: []string{"notes/**/*.md", "docs/*.txt"},
		BlockedFileGlobs: []string{"**/secret*"},
	})

	t.Run("Allowed", func(t *testing.T) {
		if v := g.CheckFile("notes/work/standup.md"); v != nil {
			t.Errorf("Unexpected violation: %v", v.Message)
		}
		if v := g.CheckFile("docs/readme.txt"); v != nil {
			t.Errorf("Unexpected violation: %v", v.Message)
		}
	})

	t.Run("Not Allowed", func(t *testing.T) {
		if v := g.CheckFile("src/main.go"); v == nil {
			t.Error("Expected violation for src/")
		}
		if v := g.CheckFile("/etc/passwd"); v == nil {
			t.Error("Expected violation for absolute path")
		}
	})

	t.Run("Blocked Wins", func(t *testing.T) {
		v := g.CheckFile("notes/secret-plans.md")
		if v == nil {
			t.Fatal("Expected violation for blocked glob")
		}
		if v.Rule != "blocked_file_globs" {
			t.Errorf("Expected blocked_file_globs rule, got %s", v.Rule)
		}
	})
}

func TestDefaultPolicy_BlocksSecrets(t *testing.T) {
	g := New(DefaultPolicy)

	for _, path := range []string{".env", "project/.env", "/home/me/.ssh/id_rsa", "certs/server.pem"} {
		if v := g.CheckFile(path); v == nil {
			t.Errorf("Expected %s to be blocked", path)
		}
	}
	for _, path := range []string{"notes.txt", "/tmp/todo.md", "src/app/config.yaml"} {
		if v := g.CheckFile(path); v != nil {
			t.Errorf("Expected %s to be allowed, got %v", path, v.Message)
		}
	}
}

func TestGuard_CheckAttachment(t *testing.T) {
	g := New(Policy{MaxAttachmentBytes: 100})

	if v := g.CheckAttachment("a.txt", 100); v != nil {
		t.Errorf("Unexpected violation: %v", v.Message)
	}
	v := g.CheckAttachment("a.txt", 101)
	if v == nil {
		t.Fatal("Expected size violation")
	}
	if v.Rule != "max_attachment_bytes" {
		t.Errorf("Expected max_attachment_bytes, got %s", v.Rule)
	}
	if !strings.Contains(v.Error(), "max_attachment_bytes") {
		t.Errorf("Expected rule in error string, got %q", v.Error())
	}
}

func TestGuard_CheckAttachmentCount(t *testing.T) {
	g := New(Policy{MaxAttachments: 2})

	if v := g.CheckAttachmentCount(2); v != nil {
		t.Errorf("Unexpected violation: %v", v.Message)
	}
	if v := g.CheckAttachmentCount(3); v == nil {
		t.Error("Expected count violation")
	}

	unlimited := New(Policy{})
	if v := unlimited.CheckAttachmentCount(100); v != nil {
		t.Error("Zero limit should mean unlimited")
	}
}

func TestGuard_CheckMessage(t *testing.T) {
	g := New(Policy{MaxMessageChars: 5})

	t.Run("Within", func(t *testing.T) {
		// Five runes, more than five bytes.
		if v := g.CheckMessage("héllo"); v != nil {
			t.Errorf("Unexpected violation: %v", v.Message)
		}
	})

	t.Run("Exceeded", func(t *testing.T) {
		if v := g.CheckMessage("hello!"); v == nil {
			t.Error("Expected length violation")
		}
	})
}

func TestGuard_HistoryWindow(t *testing.T) {
	g := New(Policy{MaxHistoryMessages: 4})

	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{3, 0},
		{4, 0},
		{5, 1},
		{10, 6},
	}
	for _, tt := range tests {
		if got := g.HistoryWindow(tt.n); got != tt.want {
			t.Errorf("HistoryWindow(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}

	if got := New(Policy{}).HistoryWindow(100); got != 0 {
		t.Errorf("Zero limit should keep everything, got %d", got)
	}
}

func TestGuard_Policy(t *testing.T) {
	g := New(DefaultPolicy)
	if g.Policy().MaxAttachments != DefaultPolicy.MaxAttachments {
		t.Error("Policy() should return the configured policy")
	}
}
