package browser

import (
	"os"
	"testing"
)

func TestSession_ReleaseIsIdempotentAndRemovesDownloadDir(t *testing.T) {
	dir, err := os.MkdirTemp("", "conectasei-session-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}

	cancelCalls := 0
	sess := &Session{
		downloadDir: dir,
		cancelTab:   func() { cancelCalls++ },
	}

	sess.Release()
	sess.Release()
	sess.Release()

	if cancelCalls != 1 {
		t.Errorf("got %d cancel calls, want exactly 1 across repeated Release calls", cancelCalls)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected download dir %s to be removed after Release, stat err: %v", dir, err)
	}
}

func TestSession_DownloadDir(t *testing.T) {
	sess := &Session{downloadDir: "/tmp/example"}
	if got := sess.DownloadDir(); got != "/tmp/example" {
		t.Errorf("got %q", got)
	}
}
