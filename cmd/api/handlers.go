package main

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"

	"github.com/RynoXLI/annex/internal/services"
	"github.com/RynoXLI/annex/internal/session"
	"github.com/RynoXLI/annex/internal/transform"
)

// withSession runs the session middleware chain in front of a huma operation
func (app *App) withSession(ctx huma.Context, next func(huma.Context)) {
	r, w := humachi.Unwrap(ctx)
	app.sessions(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		next(huma.WithContext(ctx, r.Context()))
	})).ServeHTTP(w, r)
}

// apiError translates service errors into HTTP errors
func (app *App) apiError(ctx context.Context, err error, msg string) error {
	switch {
	case errors.Is(err, services.ErrBadParameter):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, services.ErrForbidden):
		return huma.Error403Forbidden("Operation not allowed")
	case errors.Is(err, services.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, transform.ErrTransform):
		app.logger.ErrorContext(ctx, msg, "error", err)
		return huma.Error500InternalServerError("Error rendering the license annex")
	default:
		app.logger.ErrorContext(ctx, msg, "error", err)
		return huma.Error500InternalServerError(msg)
	}
}

// RegisterRoutes registers all Huma operations
func RegisterRoutes(api huma.API, app *App) {
	// Health check
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Check if the API server is running and dependencies are healthy",
		Tags:        []string{"health"},
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		healthCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		// Check database
		if err := app.db.Ping(healthCtx); err != nil {
			app.logger.Error("Health check failed: database", "error", err)
			return nil, huma.Error503ServiceUnavailable("Database unavailable")
		}

		// Check NATS
		if !app.nc.IsConnected() {
			app.logger.Error("Health check failed: NATS disconnected")
			return nil, huma.Error503ServiceUnavailable("Message queue unavailable")
		}

		resp := &HealthOutput{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	// License annex
	huma.Register(api, huma.Operation{
		OperationID: "get-limitations",
		Method:      http.MethodGet,
		Path:        "/api/v1/limitations",
		Summary:     "Show the license annex of a record",
		Description: "Render the limitations and constraints of a record together with the " +
			"attachments to be downloaded, and allow those downloads for the session",
		Tags:        []string{"license"},
		Middlewares: huma.Middlewares{app.withSession},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "License annex",
				Content:     map[string]*huma.MediaType{"application/xml": {}},
			},
		},
	}, func(ctx context.Context, input *LimitationsInput) (*huma.StreamResponse, error) {
		sess, ok := session.FromContext(ctx)
		if !ok {
			return nil, huma.Error500InternalServerError("No session")
		}

		doc, err := app.license.AddLimitations(ctx, services.LimitationsRequest{
			ID:        input.ID,
			UUID:      input.UUID,
			Access:    input.Access,
			FileNames: input.FNames,
		}, sess)
		if err != nil {
			return nil, app.apiError(ctx, err, "Failed to build license annex")
		}

		raw, err := doc.WriteToBytes()
		if err != nil {
			return nil, app.apiError(ctx, err, "Failed to encode license annex")
		}
		body := append([]byte(xml.Header), raw...)

		return &huma.StreamResponse{
			Body: func(ctx huma.Context) {
				ctx.SetHeader("Content-Type", "application/xml; charset=utf-8")
				ctx.SetHeader("Content-Length", strconv.Itoa(len(body)))
				if _, err := ctx.BodyWriter().Write(body); err != nil {
					app.logger.Error("Failed to write license annex", "error", err)
				}
			},
		}, nil
	})

	// Download attachment
	huma.Register(api, huma.Operation{
		OperationID: "download-file",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{id}/files/{fname}",
		Summary:     "Download an attachment",
		Description: "Download an attachment of a record whose license annex was shown " +
			"in this session. Remote attachments redirect to their location.",
		Tags:        []string{"files"},
		Middlewares: huma.Middlewares{app.withSession},
	}, func(ctx context.Context, input *FileDownloadInput) (*huma.StreamResponse, error) {
		sess, ok := session.FromContext(ctx)
		if !ok {
			return nil, huma.Error500InternalServerError("No session")
		}

		dl, err := app.license.DownloadFile(ctx, sess, input.ID, input.Access, input.FName)
		if err != nil {
			return nil, app.apiError(ctx, err, "Failed to download file")
		}

		if dl.Info.IsRemote() {
			loc, err := url.Parse(dl.Info.RemoteURL)
			if err != nil || (loc.Scheme != "http" && loc.Scheme != "https") {
				return nil, huma.Error501NotImplemented(
					fmt.Sprintf("Remote protocol of %s is not supported", input.FName),
				)
			}
			return &huma.StreamResponse{
				Body: func(ctx huma.Context) {
					ctx.SetHeader("Location", loc.String())
					ctx.SetStatus(http.StatusFound)
				},
			}, nil
		}

		return &huma.StreamResponse{
			Body: func(ctx huma.Context) {
				defer func() { _ = dl.Body.Close() }()
				ctx.SetHeader(
					"Content-Disposition",
					fmt.Sprintf("attachment; filename=%q", dl.Name),
				)
				ctx.SetHeader("Content-Type", "application/octet-stream")
				ctx.SetHeader("Content-Length", strconv.FormatInt(dl.Info.Size, 10))
				ctx.SetHeader("Last-Modified", dl.Info.ModTime.UTC().Format(http.TimeFormat))
				if _, err := io.Copy(ctx.BodyWriter(), dl.Body); err != nil {
					app.logger.Error("Failed to stream file", "error", err)
				}
			},
		}, nil
	})
}
