package fetcher

import (
	"errors"
	"testing"
)

func TestConnectOrKill(t *testing.T) {
	refused := errors.New("connection refused")

	killed := false
	err := connectOrKill(func() error { return refused }, func() { killed = true })
	if !errors.Is(err, refused) {
		t.Errorf("expected the connect error to be wrapped, got %v", err)
	}
	if !killed {
		t.Error("browser process should be killed when the connection fails")
	}

	killed = false
	if err := connectOrKill(func() error { return nil }, func() { killed = true }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if killed {
		t.Error("browser process should keep running after a successful connection")
	}
}
