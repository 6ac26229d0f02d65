package assistant

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/zapdesk/zapdesk/internal/users"
)

func toolCall(name, arguments string) openai.ToolCall {
	return openai.ToolCall{
		ID:   "call_1",
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      name,
			Arguments: arguments,
		},
	}
}

func TestExecuteTool(t *testing.T) {
	store := &fakeStore{
		user: users.User{ProfileID: "p1", PhoneNumber: "5511999990000", Language: "pt"},
		history: []users.Interaction{
			{Question: "hi", Response: "hello"},
		},
	}
	dataset := &fakeDataset{loaded: true, analyze: "count: 3"}
	audio := &fakeAudio{
		downloadPath:  "/tmp/a.ogg",
		transcription: "bom dia",
		generatedPath: "/tmp/r.mp3",
	}
	o := NewOrchestrator(nil, &fakeBackend{}, store, dataset, audio, testConfig())

	tests := []struct {
		name string
		call openai.ToolCall
		want string
	}{
		{
			name: "user history",
			call: toolCall("get_user_history", `{}`),
			want: "User: hi\nAssistant: hello",
		},
		{
			name: "user profile is json",
			call: toolCall("get_user_profile", `{}`),
			want: `"phone_number":"5511999990000"`,
		},
		{
			name: "audio transcribe",
			call: toolCall("handle_audio", `{"operation": "transcribe", "audio_id": "media-1"}`),
			want: "bom dia",
		},
		{
			name: "audio download",
			call: toolCall("handle_audio", `{"operation": "download", "audio_id": "media-1"}`),
			want: "Audio downloaded to /tmp/a.ogg",
		},
		{
			name: "audio generate",
			call: toolCall("handle_audio", `{"operation": "generate", "text": "olá"}`),
			want: "Audio generated at /tmp/r.mp3",
		},
		{
			name: "audio missing operation",
			call: toolCall("handle_audio", `{}`),
			want: "unknown audio operation",
		},
		{
			name: "audio missing media id",
			call: toolCall("handle_audio", `{"operation": "transcribe"}`),
			want: "audio_id is required",
		},
		{
			name: "analyze data",
			call: toolCall("analyze_data", `{"query": "status"}`),
			want: "count: 3",
		},
		{
			name: "analyze data empty query",
			call: toolCall("analyze_data", `{"query": ""}`),
			want: "query is required",
		},
		{
			name: "malformed arguments",
			call: toolCall("analyze_data", `{"query": `),
			want: "invalid arguments for analyze_data",
		},
		{
			name: "unknown function",
			call: toolCall("send_rocket", `{}`),
			want: "Unknown function: send_rocket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := o.executeTool(context.Background(), "p1", tt.call)
			assert.Contains(t, result, tt.want)
		})
	}
}

func TestExecuteToolStoreError(t *testing.T) {
	store := &fakeStore{userErr: errors.New("connection refused")}
	o := NewOrchestrator(nil, &fakeBackend{}, store, &fakeDataset{}, &fakeAudio{}, testConfig())

	result := o.executeTool(context.Background(), "p1", toolCall("get_user_profile", `{}`))
	assert.Contains(t, result, "Error retrieving profile")
}

func TestExecuteToolDatasetNotLoaded(t *testing.T) {
	o := NewOrchestrator(nil, &fakeBackend{}, &fakeStore{}, &fakeDataset{loaded: false}, &fakeAudio{}, testConfig())

	result := o.executeTool(context.Background(), "p1", toolCall("analyze_data", `{"query": "x"}`))
	assert.Equal(t, "No dataset is loaded for analysis.", result)
}

func TestClassifyQuestion(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"Hello there", "greeting"},
		{"OLÁ", "greeting"},
		{"muito obrigado!", "thanks"},
		{"necesito ayuda", "help"},
		{"when does my order arrive?", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyQuestion(tt.question), tt.question)
	}
}

func TestCannedResponseLanguageFallback(t *testing.T) {
	assert.Equal(t, cannedResponses["greeting"]["es"], cannedResponse("greeting", "es"))
	assert.Equal(t, cannedResponses["greeting"]["en"], cannedResponse("greeting", "fr"))
	assert.Equal(t, cannedResponses["thanks"]["en"], cannedResponse("thanks", ""))
	assert.Empty(t, cannedResponse("nonsense", "en"))
}
