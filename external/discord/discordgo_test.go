package discord

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/segscribe/internal/discord"
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
	return &Client{session: s}
}

func TestSendChannelMessageWithFile_DisabledClientIsNoop(t *testing.T) {
	c, err := NewClient("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Enabled() {
		t.Fatal("expected disabled client")
	}
	if err := c.SendChannelMessageWithFile(context.Background(), discordpkg.FileMessage{ChannelID: "c"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendChannelMessageWithFile_PostsAttachment(t *testing.T) {
	var gotFilename, gotBody string
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/channels/chan-1/messages") {
			t.Errorf("unexpected request: %s %s", req.Method, req.URL.Path)
		}
		_, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
		if err != nil {
			t.Errorf("unexpected content type: %v", err)
		}
		reader := multipart.NewReader(req.Body, params["boundary"])
		for {
			part, err := reader.NextPart()
			if err != nil {
				break
			}
			if part.FileName() != "" {
				gotFilename = part.FileName()
				b, _ := io.ReadAll(part)
				gotBody = string(b)
			}
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body:       io.NopCloser(strings.NewReader(`{"id":"msg-1","channel_id":"chan-1"}`)),
			Header:     make(http.Header),
		}, nil
	})

	err := c.SendChannelMessageWithFile(context.Background(), discordpkg.FileMessage{
		ChannelID: "chan-1",
		Content:   "done",
		Filename:  "talk_transcription.txt",
		FileBody:  []byte("hello"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFilename != "talk_transcription.txt" || gotBody != "hello" {
		t.Fatalf("unexpected attachment: %q %q", gotFilename, gotBody)
	}
}

func TestSendChannelMessageWithFile_ReportsUnknownChannel(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Status:     "404 Not Found",
			Body:       io.NopCloser(strings.NewReader(`{"message":"Unknown Channel","code":10003}`)),
			Header:     make(http.Header),
		}, nil
	})

	err := c.SendChannelMessageWithFile(context.Background(), discordpkg.FileMessage{ChannelID: "gone", Filename: "a.txt"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
