package discord

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/callscribe/internal/discord"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	s.Client = &http.Client{Transport: rt}
	s.MaxRestRetries = 0
	return &Client{session: s}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestNewClient_RequiresToken(t *testing.T) {
	if _, err := NewClient(""); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}

func TestSendChannelMessage(t *testing.T) {
	var gotBody string
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/channels/chan-1/messages") {
			t.Errorf("unexpected request: %s %s", req.Method, req.URL.Path)
		}
		if auth := req.Header.Get("Authorization"); auth != "Bot test-token" {
			t.Errorf("unexpected authorization: %q", auth)
		}
		b, _ := io.ReadAll(req.Body)
		gotBody = string(b)
		return jsonResponse(http.StatusOK, `{"id":"m1","channel_id":"chan-1","content":"hello"}`), nil
	})

	if err := c.SendChannelMessage("chan-1", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotBody, `"content":"hello"`) {
		t.Fatalf("unexpected body: %s", gotBody)
	}
}

func TestSendChannelMessage_NotFound(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"Unknown Channel","code":10003}`), nil
	})
	err := c.SendChannelMessage("gone", "hello")
	if !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestSendChannelMessageWithFile(t *testing.T) {
	var gotFilename, gotFile string
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		reader, err := req.MultipartReader()
		if err != nil {
			t.Errorf("expected multipart body: %v", err)
			return jsonResponse(http.StatusBadRequest, `{}`), nil
		}
		for {
			part, err := reader.NextPart()
			if err != nil {
				break
			}
			if part.FileName() != "" {
				gotFilename = part.FileName()
				b, _ := io.ReadAll(part)
				gotFile = string(b)
			}
		}
		return jsonResponse(http.StatusOK, `{"id":"m2","channel_id":"chan-1"}`), nil
	})

	err := c.SendChannelMessageWithFile(discordpkg.FileMessage{
		ChannelID: "chan-1",
		Content:   "Transcript S1",
		Filename:  "transcript.txt",
		FileBody:  []byte("00:00:01 [Ada] hello"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFilename != "transcript.txt" || gotFile != "00:00:01 [Ada] hello" {
		t.Fatalf("unexpected attachment: %q %q", gotFilename, gotFile)
	}
}

func TestIsRESTNotFound(t *testing.T) {
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	if !isRESTNotFound(notFound) {
		t.Fatal("expected 404 to be detected")
	}
	if isRESTNotFound(&discordgo.RESTError{}) || isRESTNotFound(errors.New("x")) || isRESTNotFound(nil) {
		t.Fatal("unexpected not-found detection")
	}
}
