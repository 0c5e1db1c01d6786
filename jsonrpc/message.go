package jsonrpc

import (
	"encoding/json"
	"errors"
)

// Version is the only protocol version accepted.
const Version = "2.0"

// RawMessage is a raw JSON value that delays unmarshaling.
type RawMessage = json.RawMessage

// Message is implemented by Request, Notification and Response.
type Message interface {
	isMessage()
}

// Request expects a Response with the same ID.
type Request struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      ID         `json:"id"`
	Method  string     `json:"method"`
	Params  RawMessage `json:"params,omitempty"`
}

// Notification has no ID and gets no reply.
type Notification struct {
	JSONRPC string     `json:"jsonrpc"`
	Method  string     `json:"method"`
	Params  RawMessage `json:"params,omitempty"`
}

// Response carries either Result or Error.
type Response struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      ID         `json:"id"`
	Result  RawMessage `json:"result,omitempty"`
	Error   *Error     `json:"error,omitempty"`
}

func (Request) isMessage()      {}
func (Notification) isMessage() {}
func (Response) isMessage()     {}

// Error is a JSON-RPC error object. Handlers return it to control the code
// sent to the client; any other error becomes CodeInternalError.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Errorf builds an *Error with the given code.
func Errorf(code int, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeServerNotInitialized = -32002
	CodeRequestCancelled     = -32800
)

// ID is a request ID, either an integer or a string.
type ID struct {
	value any
}

// IntID creates an integer ID.
func IntID(v int64) ID { return ID{value: v} }

// StringID creates a string ID.
func StringID(v string) ID { return ID{value: v} }

func (id ID) IsValid() bool { return id.value != nil }
func (id ID) Value() any    { return id.value }

func (id ID) MarshalJSON() ([]byte, error) {
	if id.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		id.value = nil
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		id.value = n
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		id.value = s
		return nil
	}
	return Errorf(CodeInvalidRequest, "id must be a number, string, or null")
}

// DecodeMessage classifies a raw frame body.
func DecodeMessage(data []byte) (Message, error) {
	var raw struct {
		JSONRPC string     `json:"jsonrpc"`
		ID      *ID        `json:"id,omitempty"`
		Method  string     `json:"method,omitempty"`
		Result  RawMessage `json:"result,omitempty"`
		Error   *Error     `json:"error,omitempty"`
		Params  RawMessage `json:"params,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, Errorf(CodeParseError, "failed to parse JSON-RPC message")
	}

	switch {
	case raw.Method != "" && raw.ID != nil && raw.ID.IsValid():
		return &Request{JSONRPC: raw.JSONRPC, ID: *raw.ID, Method: raw.Method, Params: raw.Params}, nil
	case raw.Method != "":
		return &Notification{JSONRPC: raw.JSONRPC, Method: raw.Method, Params: raw.Params}, nil
	}

	resp := &Response{JSONRPC: raw.JSONRPC, Result: raw.Result, Error: raw.Error}
	if raw.ID != nil {
		resp.ID = *raw.ID
	}
	return resp, nil
}

// NewResponse builds the reply for id. A nil result is encoded as JSON null.
func NewResponse(id ID, result any, err error) *Response {
	resp := &Response{JSONRPC: Version, ID: id}
	if err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			resp.Error = rpcErr
		} else {
			resp.Error = Errorf(CodeInternalError, err.Error())
		}
		return resp
	}
	if result == nil {
		resp.Result = RawMessage("null")
		return resp
	}
	data, merr := json.Marshal(result)
	if merr != nil {
		resp.Error = Errorf(CodeInternalError, merr.Error())
		return resp
	}
	resp.Result = data
	return resp
}
