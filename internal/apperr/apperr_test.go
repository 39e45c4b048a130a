package apperr

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
)

func TestSentinelMatchesWrappedKind(t *testing.T) {
	err := fmt.Errorf("handler: %w", Wrap(io.ErrUnexpectedEOF, KindDecode, "decode image"))

	if !errors.Is(err, ErrDecode) {
		t.Fatal("expected decode sentinel to match")
	}
	if errors.Is(err, ErrImageTooSmall) {
		t.Fatal("did not expect image-too-small sentinel to match")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("expected cause to stay reachable")
	}
	if KindOf(err) != KindDecode {
		t.Fatalf("unexpected kind %s", KindOf(err))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, KindConfig, "load") != nil {
		t.Fatal("expected nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		New(KindDecode, "bad"):          http.StatusBadRequest,
		New(KindImageTooSmall, "small"): http.StatusUnprocessableEntity,
		New(KindSegmentation, "empty"):  http.StatusUnprocessableEntity,
		New(KindConfig, "weights"):      http.StatusInternalServerError,
		errors.New("something else"):    http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := HTTPStatus(err); got != want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestErrorMessageFallsBackToKind(t *testing.T) {
	if got := ErrSegmentation.Error(); got != "segmentation_error" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindDecode, KindImageTooSmall, KindSegmentation, KindConfig} {
		if got := ParseKind(k.String()); got != k {
			t.Fatalf("round trip of %s gave %s", k, got)
		}
	}
	if ParseKind("nope") != KindUnknown {
		t.Fatal("expected unknown kind")
	}
}
