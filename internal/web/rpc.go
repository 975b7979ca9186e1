package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"todoblock/internal/apperr"
	"todoblock/internal/i18n"
	"todoblock/internal/model"
	"todoblock/internal/mutate"
	"todoblock/internal/view"
)

const maxRequestBody = 64 << 10

// rpcParams carries every parameter any list operation accepts. Identity is
// never part of it.
type rpcParams struct {
	InstanceID    int64  `json:"instanceId"`
	ID            int64  `json:"id"`
	Text          string `json:"text"`
	DueDate       *int64 `json:"dueDate"`
	GroupID       int    `json:"groupId"`
	Hide          bool   `json:"hide"`
	IncludeHidden bool   `json:"includeHidden"`
	CurrentGroup  int    `json:"currentGroup"`
}

func (p rpcParams) viewState() model.ViewState {
	return model.ViewState{CurrentGroup: model.GroupID(p.CurrentGroup), IncludeHidden: p.IncludeHidden}
}

// dueDate treats 0 like an absent due date.
func (p rpcParams) dueDate() *int64 {
	if p.DueDate == nil || *p.DueDate == 0 {
		return nil
	}
	v := *p.DueDate
	return &v
}

type rpcMethod func(ctx context.Context, svc *mutate.Service, actor string, p rpcParams) (view.ViewModel, error)

var rpcMethods = map[string]rpcMethod{
	"add_item": func(ctx context.Context, svc *mutate.Service, actor string, p rpcParams) (view.ViewModel, error) {
		return svc.Add(ctx, actor, mutate.AddInput{Text: p.Text, DueDate: p.dueDate(), GroupID: p.GroupID, View: p.viewState()})
	},
	"edit_item": func(ctx context.Context, svc *mutate.Service, actor string, p rpcParams) (view.ViewModel, error) {
		return svc.Edit(ctx, actor, mutate.EditInput{ID: p.ID, Text: p.Text, DueDate: p.dueDate(), GroupID: p.GroupID, View: p.viewState()})
	},
	"toggle_item": func(ctx context.Context, svc *mutate.Service, actor string, p rpcParams) (view.ViewModel, error) {
		return svc.ToggleDone(ctx, actor, mutate.ToggleInput{ID: p.ID, Hide: p.Hide, View: p.viewState()})
	},
	"delete_item": func(ctx context.Context, svc *mutate.Service, actor string, p rpcParams) (view.ViewModel, error) {
		return svc.Delete(ctx, actor, mutate.ItemInput{ID: p.ID, View: p.viewState()})
	},
	"delete_completed": func(ctx context.Context, svc *mutate.Service, actor string, p rpcParams) (view.ViewModel, error) {
		return svc.DeleteCompleted(ctx, actor, p.viewState())
	},
	"pin_item": func(ctx context.Context, svc *mutate.Service, actor string, p rpcParams) (view.ViewModel, error) {
		return svc.Pin(ctx, actor, mutate.ItemInput{ID: p.ID, View: p.viewState()})
	},
	"hide_done_items": func(ctx context.Context, svc *mutate.Service, actor string, p rpcParams) (view.ViewModel, error) {
		return svc.HideDone(ctx, actor, mutate.HideDoneInput{Hide: p.Hide, CurrentGroup: p.CurrentGroup})
	},
	"group_items": func(ctx context.Context, svc *mutate.Service, actor string, p rpcParams) (view.ViewModel, error) {
		return svc.GroupFilter(ctx, actor, mutate.GroupInput{GroupID: p.GroupID, IncludeHidden: p.IncludeHidden})
	},
	"refresh_items": func(ctx context.Context, svc *mutate.Service, actor string, p rpcParams) (view.ViewModel, error) {
		return svc.Refresh(ctx, actor, p.viewState())
	},
}

// Methods lists the RPC method names the server answers.
func Methods() []string {
	return []string{
		"add_item", "edit_item", "toggle_item", "delete_item", "delete_completed",
		"pin_item", "hide_done_items", "group_items", "refresh_items",
	}
}

type rpcResponse struct {
	HTML string         `json:"html"`
	View view.ViewModel `json:"view"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
}

func isDatastarRequest(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("Datastar-Request")), "true")
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("method")
	loc := s.localizerFor(r)

	method, ok := rpcMethods[name]
	if !ok {
		s.writeError(w, r, loc, name, apperr.NotFound("method", name))
		return
	}

	var p rpcParams
	if err := s.decodeParams(w, r, &p); err != nil {
		s.writeError(w, r, loc, name, err)
		return
	}
	if p.InstanceID != s.cfg.InstanceID {
		s.writeError(w, r, loc, name, apperr.NotFound("instance", strconv.FormatInt(p.InstanceID, 10)))
		return
	}

	vm, err := method(r.Context(), s.serviceFor(loc), s.actorForRequest(r), p)
	if err != nil {
		s.writeError(w, r, loc, name, err)
		return
	}

	html, err := s.renderTemplate("list", s.buildList(vm, loc))
	if err != nil {
		s.writeError(w, r, loc, name, fmt.Errorf("render list: %w", err))
		return
	}

	if isDatastarRequest(r) {
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElements(html,
			datastar.WithSelector(listSelector(s.cfg.InstanceID)),
			datastar.WithMode(datastar.ElementPatchModeOuter),
		)
		_ = sse.MarshalAndPatchSignals(map[string]any{
			"currentGroup":   vm.CurrentGroup,
			"includeHidden":  vm.IncludeHidden,
			"hasHiddenItems": vm.HasHiddenItems,
			"error":          "",
		})
		return
	}

	writeJSON(w, http.StatusOK, rpcResponse{HTML: html, View: vm})
}

func (s *Server) decodeParams(w http.ResponseWriter, r *http.Request, p *rpcParams) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if isDatastarRequest(r) {
		if err := datastar.ReadSignals(r, p); err != nil {
			return apperr.Validation("body", err.Error())
		}
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("body", "request body is empty")
		}
		return apperr.Validation("body", err.Error())
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, loc *i18n.Localizer, method string, err error) {
	s.logUnexpected(method, err)

	code := codeOf(err)
	detail := errorDetail{Code: code, Message: loc.ErrorMessage(err)}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Metadata != nil {
		detail.Field = ae.Metadata["field"]
	}

	if isDatastarRequest(r) {
		sse := datastar.NewSSE(w, r)
		_ = sse.MarshalAndPatchSignals(map[string]any{"error": detail})
		return
	}
	writeJSON(w, code.HTTPStatus(), errorBody{Error: detail})
}

// logUnexpected logs failures the client cannot recover from by itself.
func (s *Server) logUnexpected(method string, err error) {
	if codeOf(err) == apperr.CodeInternal {
		s.cfg.Logger.Printf("%s: %v", method, err)
	}
}

func codeOf(err error) apperr.Code {
	if c := apperr.CodeOf(err); c != "" {
		return c
	}
	return apperr.CodeInternal
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func listSelector(instanceID int64) string {
	return "#todo-list-" + strconv.FormatInt(instanceID, 10)
}
