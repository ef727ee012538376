package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is the HTTP client for the tutor admin API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new admin API client (token may be empty)
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			// a manual push walks the whole roster
			Timeout: 5 * time.Minute,
		},
	}
}

// Lesson represents a scheduled class
type Lesson struct {
	Date    string `json:"date"`
	Topic   string `json:"topic"`
	Subject string `json:"subject"`
	Class   string `json:"class"`
	Teacher string `json:"teacher"`
}

// Student represents a roster entry
type Student struct {
	Name      string `json:"name"`
	Class     string `json:"class"`
	Recipient string `json:"recipient"`
}

// Turn represents one conversation turn
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Session represents a tutoring session
type Session struct {
	ID         string `json:"id"`
	Recipient  string `json:"recipient"`
	LessonDate string `json:"lesson_date"`
	Topic      string `json:"topic"`
	Turns      int    `json:"turns"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
	History    []Turn `json:"history,omitempty"`
}

// TranscriptEntry represents a recorded turn
type TranscriptEntry struct {
	Recipient  string `json:"recipient"`
	LessonDate string `json:"lesson_date"`
	Role       string `json:"role"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
}

// Delivery represents one push attempt
type Delivery struct {
	RunID       string `json:"run_id"`
	LessonDate  string `json:"lesson_date"`
	Class       string `json:"class"`
	Recipient   string `json:"recipient"`
	StudentName string `json:"student_name"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// PushReport summarizes a push run
type PushReport struct {
	RunID   string   `json:"run_id"`
	Date    string   `json:"date"`
	Lessons int      `json:"lessons"`
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// AskResult is the tutor's answer
type AskResult struct {
	SessionID string `json:"session_id,omitempty"`
	IsNew     bool   `json:"is_new"`
	Reply     string `json:"reply"`
	Error     string `json:"error,omitempty"`
}

// ============ Schedule ============

// TodayLessons gets today's lessons
func (c *Client) TodayLessons(ctx context.Context) (string, []Lesson, error) {
	var result struct {
		Date    string   `json:"date"`
		Lessons []Lesson `json:"lessons"`
	}
	if err := c.get(ctx, "/api/lesson/today", &result); err != nil {
		return "", nil, err
	}
	return result.Date, result.Lessons, nil
}

// ClassStudents gets the roster of a class
func (c *Client) ClassStudents(ctx context.Context, class string) ([]Student, error) {
	var result struct {
		Students []Student `json:"students"`
	}
	if err := c.get(ctx, fmt.Sprintf("/api/classes/%s/students", url.PathEscape(class)), &result); err != nil {
		return nil, err
	}
	return result.Students, nil
}

// ============ Push ============

// Push triggers a push run now
func (c *Client) Push(ctx context.Context) (*PushReport, error) {
	var report PushReport
	if err := c.post(ctx, "/api/push", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Deliveries lists push attempts of a date (empty for today)
func (c *Client) Deliveries(ctx context.Context, date string, limit int) ([]Delivery, error) {
	var result struct {
		Deliveries []Delivery `json:"deliveries"`
	}
	if err := c.get(ctx, "/api/deliveries"+query(date, limit), &result); err != nil {
		return nil, err
	}
	return result.Deliveries, nil
}

// ============ Sessions ============

// ListSessions lists active sessions
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var result struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.get(ctx, "/api/sessions", &result); err != nil {
		return nil, err
	}
	return result.Sessions, nil
}

// GetSession gets a session with its history
func (c *Client) GetSession(ctx context.Context, recipient string) (*Session, error) {
	var sess Session
	if err := c.get(ctx, fmt.Sprintf("/api/sessions/%s", url.PathEscape(recipient)), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ResetSession drops a recipient's session
func (c *Client) ResetSession(ctx context.Context, recipient string) error {
	return c.delete(ctx, fmt.Sprintf("/api/sessions/%s", url.PathEscape(recipient)))
}

// Transcript lists recorded turns of a recipient
func (c *Client) Transcript(ctx context.Context, recipient, date string, limit int) ([]TranscriptEntry, error) {
	var result struct {
		Entries []TranscriptEntry `json:"entries"`
	}
	path := fmt.Sprintf("/api/transcripts/%s", url.PathEscape(recipient)) + query(date, limit)
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// Ask asks the tutor as a student without sending anything over WhatsApp
func (c *Client) Ask(ctx context.Context, recipient, message string) (*AskResult, error) {
	body := map[string]string{"recipient": recipient, "message": message}
	var result AskResult
	if err := c.post(ctx, "/api/debug/ask", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ============ HTTP Helpers ============

func query(date string, limit int) string {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}
	return c.do(ctx, http.MethodPost, path, reader, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
