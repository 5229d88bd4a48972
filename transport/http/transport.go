package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/vectoscalar/vsgpt"
	"github.com/vectoscalar/vsgpt/chain"
	"github.com/vectoscalar/vsgpt/ingest"
)

// UploadDocumentsHandler accepts a multipart batch of PDF files, stages
// them in a transient directory and hands the staged paths to the ingest
// endpoint. The staging directory is removed on every exit path.
func UploadDocumentsHandler(endpoint endpoint.Endpoint, stagingRoot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		files := form.File["files"]
		if len(files) == 0 {
			err := errors.New("no files uploaded")
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		for _, file := range files {
			if !ingest.IsPDF(file.Filename) {
				err := errors.New("only PDF files are accepted: " + file.Filename)
				c.String(http.StatusBadRequest, err.Error())
				c.Error(err)
				c.Abort()
				return
			}
		}

		staging, err := ingest.NewStaging(stagingRoot)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			c.Error(err)
			c.Abort()
			return
		}
		defer staging.Cleanup()

		paths := make([]string, 0, len(files))
		for _, file := range files {
			f, err := file.Open()
			if err != nil {
				c.String(http.StatusBadRequest, err.Error())
				c.Error(err)
				c.Abort()
				return
			}

			path, err := staging.Add(file.Filename, f)
			f.Close()
			if err != nil {
				c.String(http.StatusInternalServerError, err.Error())
				c.Error(err)
				c.Abort()
				return
			}

			paths = append(paths, path)
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, vsgpt.IngestDocumentsRequest{Paths: paths})
		if err != nil {
			c.String(http.StatusExpectationFailed, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

// AskHandler streams answer events as server-sent events: one "sources"
// event, "message" events in generation order, and an "error" event if
// generation fails mid-stream.
func AskHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req vsgpt.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			c.String(http.StatusExpectationFailed, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		events, ok := resp.(<-chan chain.Event)
		if !ok {
			err := errors.New("invalid response type")
			c.String(http.StatusInternalServerError, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		for event := range events {
			switch e := event.(type) {
			case chain.SourceBatch:
				c.SSEvent("sources", e.Documents)
			case chain.TextFragment:
				c.SSEvent("message", e.Content)
			case chain.Failure:
				c.SSEvent("error", e.Err.Error())
			}

			c.Writer.Flush()
		}
	}
}

func SearchDocumentsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req vsgpt.SearchDocumentsRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			c.String(http.StatusExpectationFailed, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func StatusHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		resp, err := endpoint(ctx, nil)
		if err != nil {
			c.String(http.StatusExpectationFailed, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}
