// Package speech turns recorded audio into structured feeding data: a
// transcription step through the speech-to-text API, and an evaluation step
// that extracts the feeding amount and time from the transcript via a forced
// function call.
package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nestling-app/nestling-api/internal/timeutil"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultTranscriptionModel is the speech-to-text model.
	DefaultTranscriptionModel = "whisper-1"
	// DefaultEvaluationModel extracts feeding parameters from transcripts.
	DefaultEvaluationModel = "gpt-4o-mini"

	// UnknownValue is the sentinel returned when the model cannot extract a
	// field from the transcript.
	UnknownValue = "-1"

	// extractionTimeLayout is the time format the model is instructed to
	// return, interpreted in the caller's timezone.
	extractionTimeLayout = "2006-01-02 15:04:05"

	evaluationSystemInstructions = `Your singular job is to return the "add_feeding" function with the correct parameters extracted from the user prompt. You will also be provided the current time for reference.`
)

// ErrNoToolCall is returned when the evaluation response carries no function
// call to parse.
var ErrNoToolCall = errors.New("no tool call in evaluation response")

// Extraction is the structured result of evaluating a transcript. Amount is
// -1 and Time is "-1" when the respective field could not be extracted.
type Extraction struct {
	Amount float64 `json:"amount"`
	Time   string  `json:"time"`
}

// HasAmount reports whether an amount was extracted.
func (e *Extraction) HasAmount() bool { return e.Amount >= 0 }

// OccurredAt parses the extracted time in the given timezone. ok is false
// when no time was extracted or the value does not parse.
func (e *Extraction) OccurredAt(tz string) (time.Time, bool) {
	if e.Time == "" || e.Time == UnknownValue {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(extractionTimeLayout, e.Time, timeutil.Location(tz))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Service wraps the transcription and evaluation calls.
type Service struct {
	client             openai.Client
	transcriptionModel string
	evaluationModel    string
	logger             *zap.Logger
	debugMode          bool
}

// NewService creates a speech service.
func NewService(apiKey, transcriptionModel, evaluationModel string, logger *zap.Logger, debugMode bool) *Service {
	if transcriptionModel == "" {
		transcriptionModel = DefaultTranscriptionModel
	}
	if evaluationModel == "" {
		evaluationModel = DefaultEvaluationModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		client:             openai.NewClient(option.WithAPIKey(apiKey)),
		transcriptionModel: transcriptionModel,
		evaluationModel:    evaluationModel,
		logger:             logger,
		debugMode:          debugMode,
	}
}

// Transcribe sends audio to the speech-to-text endpoint and returns the
// transcript text.
func (s *Service) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "audio.wav"
	}

	resp, err := s.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(audio, filename, "application/octet-stream"),
		Model: openai.AudioModel(s.transcriptionModel),
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	if s.debugMode {
		s.logger.Debug("audio_transcribed",
			zap.String("model", s.transcriptionModel),
			zap.Int("transcript_length", len(resp.Text)),
		)
	}

	return resp.Text, nil
}

// Evaluate extracts the feeding amount and time from a transcript by forcing
// an add_feeding function call. The user's timezone and current time are
// appended to the prompt so relative phrases like "an hour ago" resolve.
func (s *Service) Evaluate(ctx context.Context, transcription, tz string, userTime time.Time) (*Extraction, error) {
	if tz == "" {
		tz = timeutil.DefaultZone
	}
	if userTime.IsZero() {
		userTime = time.Now()
	}

	prompt := transcription + "\n"
	prompt += fmt.Sprintf("[USER TIMEZONE]: %s\n", tz)
	prompt += fmt.Sprintf("[USER CURRENT TIME]: %s\n", timeutil.ToLocal(userTime, tz))

	tools := []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        "add_feeding",
			Description: param.NewOpt("Function to add a new feeding activity containing both the amount eaten in ML and the datetime"),
			Strict:      param.NewOpt(true),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"amount": map[string]any{
						"type":        "number",
						"description": "The feeding amount in ML. Return -1 if you are unable to extract an amount",
					},
					"time": map[string]any{
						"type":        "string",
						"description": "The time in the following format: YYYY-MM-DD HH:MM:SS. Return -1 if you are unable to extract a time",
					},
				},
				"required":             []string{"amount", "time"},
				"additionalProperties": false,
			},
		}),
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.evaluationModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(evaluationSystemInstructions),
			openai.UserMessage(prompt),
		},
		Tools:       tools,
		Temperature: openai.Float(1),
		MaxTokens:   openai.Int(2048),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate transcription: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}

	toolCalls := resp.Choices[0].Message.ToolCalls
	if len(toolCalls) == 0 {
		return nil, ErrNoToolCall
	}

	call := toolCalls[0].AsFunction()
	extraction, err := parseExtraction(call.Function.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}

	if s.debugMode {
		s.logger.Debug("transcription_evaluated",
			zap.Float64("amount", extraction.Amount),
			zap.String("time", extraction.Time),
		)
	}

	return extraction, nil
}

// parseExtraction decodes the function arguments tolerantly: the schema says
// time is a string, but a misbehaving model may return the -1 sentinel as a
// number for either field.
func parseExtraction(raw string) (*Extraction, error) {
	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}

	out := &Extraction{Amount: -1, Time: UnknownValue}

	if v, ok := args["amount"]; ok {
		var amount float64
		if err := json.Unmarshal(v, &amount); err == nil {
			out.Amount = amount
		}
	}
	if v, ok := args["time"]; ok {
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			out.Time = str
		} else {
			var num float64
			if err := json.Unmarshal(v, &num); err == nil {
				out.Time = strconv.FormatFloat(num, 'f', -1, 64)
			}
		}
	}

	return out, nil
}
