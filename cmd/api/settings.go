package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"
)

type PutSettingRequest struct {
	Value string `json:"value" validate:"required"`
}

func (app *application) getSettingHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		app.badRequestResponse(w, r, errors.New("key is required"))
		return
	}

	value, err := app.settingRepo.Get(r.Context(), key)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := map[string]string{
		"key":   key,
		"value": value,
	}

	if err := app.jsonResponse(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) putSettingHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		app.badRequestResponse(w, r, errors.New("key is required"))
		return
	}

	var req PutSettingRequest
	if err := readJSON(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.settingRepo.Set(r.Context(), key, req.Value); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := map[string]string{
		"key":   key,
		"value": req.Value,
	}

	if err := app.jsonResponse(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}
