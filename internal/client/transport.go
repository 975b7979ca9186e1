package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"todoblock/internal/apperr"
	"todoblock/internal/model"
	"todoblock/internal/mutate"
	"todoblock/internal/view"
)

const (
	MethodAdd             = "add_item"
	MethodEdit            = "edit_item"
	MethodToggle          = "toggle_item"
	MethodDelete          = "delete_item"
	MethodDeleteCompleted = "delete_completed"
	MethodPin             = "pin_item"
	MethodHideDone        = "hide_done_items"
	MethodGroup           = "group_items"
	MethodRefresh         = "refresh_items"
)

// Params is the request body of every list operation. It never carries an
// owner; the server derives it from the session.
type Params struct {
	InstanceID    int64  `json:"instanceId"`
	ID            int64  `json:"id,omitempty"`
	Text          string `json:"text,omitempty"`
	DueDate       *int64 `json:"dueDate,omitempty"`
	GroupID       int    `json:"groupId"`
	Hide          bool   `json:"hide"`
	IncludeHidden bool   `json:"includeHidden"`
	CurrentGroup  int    `json:"currentGroup"`
}

// Result is a successful response: the list fragment and the view it shows.
type Result struct {
	HTML string         `json:"html"`
	View view.ViewModel `json:"view"`
}

// Transport performs one operation.
type Transport interface {
	Call(ctx context.Context, method string, p Params) (Result, error)
}

// HTTP talks to a running server's /api endpoints.
type HTTP struct {
	BaseURL string
	Client  *http.Client
}

func (t HTTP) Call(ctx context.Context, method string, p Params) (Result, error) {
	var res Result
	err := postJSON(ctx, t.httpClient(), strings.TrimRight(t.BaseURL, "/"), "/api/"+method, p, &res)
	return res, err
}

func (t HTTP) httpClient() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}

func postJSON(ctx context.Context, client *http.Client, baseURL, path string, payload any, dest any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return apperr.Internal(fmt.Errorf("post %s: %w", path, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readErrorResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperr.Internal(fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

type errorBody struct {
	Error struct {
		Code    apperr.Code `json:"code"`
		Message string      `json:"message"`
		Field   string      `json:"field"`
	} `json:"error"`
}

// readErrorResponse turns a failure body into an *apperr.Error carrying the
// server's code and localized message.
func readErrorResponse(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if err := json.Unmarshal(b, &body); err != nil || body.Error.Code == "" {
		return &apperr.Error{
			Code:    codeForStatus(resp.StatusCode),
			Message: resp.Status,
		}
	}
	e := &apperr.Error{Code: body.Error.Code, Message: body.Error.Message}
	if body.Error.Field != "" {
		e.Metadata = map[string]string{"field": body.Error.Field}
	}
	return e
}

func codeForStatus(status int) apperr.Code {
	switch status {
	case http.StatusBadRequest:
		return apperr.CodeValidation
	case http.StatusNotFound:
		return apperr.CodeNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.CodeUnauthorized
	default:
		return apperr.CodeInternal
	}
}

// Local runs operations in process against a Service, as Actor.
type Local struct {
	Service *mutate.Service
	Actor   string
}

func (t Local) Call(ctx context.Context, method string, p Params) (Result, error) {
	vs := model.ViewState{CurrentGroup: model.GroupID(p.CurrentGroup), IncludeHidden: p.IncludeHidden}
	var (
		vm  view.ViewModel
		err error
	)
	switch method {
	case MethodAdd:
		vm, err = t.Service.Add(ctx, t.Actor, mutate.AddInput{Text: p.Text, DueDate: p.DueDate, GroupID: p.GroupID, View: vs})
	case MethodEdit:
		vm, err = t.Service.Edit(ctx, t.Actor, mutate.EditInput{ID: p.ID, Text: p.Text, DueDate: p.DueDate, GroupID: p.GroupID, View: vs})
	case MethodToggle:
		vm, err = t.Service.ToggleDone(ctx, t.Actor, mutate.ToggleInput{ID: p.ID, Hide: p.Hide, View: vs})
	case MethodDelete:
		vm, err = t.Service.Delete(ctx, t.Actor, mutate.ItemInput{ID: p.ID, View: vs})
	case MethodDeleteCompleted:
		vm, err = t.Service.DeleteCompleted(ctx, t.Actor, vs)
	case MethodPin:
		vm, err = t.Service.Pin(ctx, t.Actor, mutate.ItemInput{ID: p.ID, View: vs})
	case MethodHideDone:
		vm, err = t.Service.HideDone(ctx, t.Actor, mutate.HideDoneInput{Hide: p.Hide, CurrentGroup: p.CurrentGroup})
	case MethodGroup:
		vm, err = t.Service.GroupFilter(ctx, t.Actor, mutate.GroupInput{GroupID: p.GroupID, IncludeHidden: p.IncludeHidden})
	case MethodRefresh:
		vm, err = t.Service.Refresh(ctx, t.Actor, vs)
	default:
		return Result{}, apperr.NotFound("method", method)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{View: vm}, nil
}
