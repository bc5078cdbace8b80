package llm

// Event is one partial completion decoded from a streaming response.
// DeltaContent and FinishReason are nil when the record did not carry them.
type Event struct {
	Index        int
	DeltaContent *string
	FinishReason *string
}

// Delta returns the delta content or "" when absent
func (e Event) Delta() string {
	if e.DeltaContent == nil {
		return ""
	}
	return *e.DeltaContent
}

// completionRequest is the body sent to /chat/completions
type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// completionResponse is the non-streaming response body
type completionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// streamChunk is a single "data:" record of a streaming response.
// Optional fields are pointers so absence can be told apart from "".
type streamChunk struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string  `json:"role,omitempty"`
			Content *string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// toEvent validates the chunk and converts its first choice into an Event
func (c *streamChunk) toEvent() (Event, bool) {
	if len(c.Choices) == 0 {
		return Event{}, false
	}
	choice := c.Choices[0]
	return Event{
		Index:        choice.Index,
		DeltaContent: choice.Delta.Content,
		FinishReason: choice.FinishReason,
	}, true
}
