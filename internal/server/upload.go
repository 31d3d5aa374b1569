package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"resumatch/internal/extract"
)

// resumeFileField is the multipart part carrying an uploaded resume
// document. The web client sends it on both the analyze and optimize
// endpoints; the resumeText field is the textarea fallback.
const resumeFileField = "resumeFile"

// defaultMultipartMemory bounds how much of a parsed form stays in
// memory before spilling to disk.
const defaultMultipartMemory = 10 << 20

// resumeForm is the shared analyze/optimize input once decoded from a
// multipart request. FromFile reports that the resume text was
// extracted from an uploaded binary document rather than typed in.
type resumeForm struct {
	JobDescription         string
	ResumeText             string
	FromFile               bool
	AggressivePersonalMode bool
	JDKeywordListMode      bool
	AdvancedATSMode        bool
}

// isMultipartRequest reports whether the request carries a form upload
// instead of a JSON body.
func isMultipartRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseResumeForm decodes a multipart analyze/optimize request. An
// attached resume file wins over the resumeText field; when neither
// yields text, or the job description is missing, the request is
// rejected.
func (s *Server) parseResumeForm(r *http.Request) (resumeForm, error) {
	var form resumeForm

	maxMemory := int64(defaultMultipartMemory)
	if s.MaxRequestSize > 0 && s.MaxRequestSize < maxMemory {
		maxMemory = s.MaxRequestSize
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return form, fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return form, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	form.JobDescription = strings.TrimSpace(r.FormValue("jobDescription"))
	form.ResumeText = r.FormValue("resumeText")
	form.AggressivePersonalMode = formBool(r, "aggressivePersonalMode")
	form.JDKeywordListMode = formBool(r, "jdKeywordListMode")
	form.AdvancedATSMode = formBool(r, "advancedAtsMode")

	file, header, err := r.FormFile(resumeFileField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// Textarea fallback.
	case err != nil:
		return form, fmt.Errorf("failed to read %s upload: %w", resumeFileField, err)
	default:
		defer file.Close()
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			return form, fmt.Errorf("failed to read %s upload: %w", resumeFileField, readErr)
		}
		extracted, extractErr := extract.FromBytes(header.Filename, data)
		if extractErr != nil {
			return form, extractErr
		}
		form.ResumeText = extracted.Text
		form.FromFile = extracted.Kind == extract.KindDOCX || extracted.Kind == extract.KindPDF
	}

	if form.JobDescription == "" {
		return form, errors.New("jobDescription is required")
	}
	if strings.TrimSpace(form.ResumeText) == "" {
		return form, errors.New("resume content is required: attach " + resumeFileField + " or provide resumeText")
	}
	return form, nil
}

// decodeAnalyzeRequest accepts either a JSON body or a multipart form
// with an optional resumeFile part.
func (s *Server) decodeAnalyzeRequest(r *http.Request) (AnalyzeRequest, error) {
	if isMultipartRequest(r) {
		form, err := s.parseResumeForm(r)
		if err != nil {
			return AnalyzeRequest{}, err
		}
		return AnalyzeRequest{
			JobDescription:         form.JobDescription,
			ResumeText:             form.ResumeText,
			AggressivePersonalMode: form.AggressivePersonalMode,
			JDKeywordListMode:      form.JDKeywordListMode,
			AdvancedATSMode:        form.AdvancedATSMode,
		}, nil
	}
	var req AnalyzeRequest
	err := s.decodeRequest(r, &req)
	return req, err
}

// decodeOptimizeRequest is decodeAnalyzeRequest for the optimize
// endpoint. fromFile steers the coordinator into its layout-preserving
// file mode when the resume arrived as a binary document.
func (s *Server) decodeOptimizeRequest(r *http.Request) (req OptimizeRequest, fromFile bool, err error) {
	if isMultipartRequest(r) {
		form, err := s.parseResumeForm(r)
		if err != nil {
			return OptimizeRequest{}, false, err
		}
		return OptimizeRequest{
			JobDescription:         form.JobDescription,
			ResumeText:             form.ResumeText,
			AggressivePersonalMode: form.AggressivePersonalMode,
			JDKeywordListMode:      form.JDKeywordListMode,
			AdvancedATSMode:        form.AdvancedATSMode,
		}, form.FromFile, nil
	}
	err = s.decodeRequest(r, &req)
	return req, false, err
}

// formBool reads a form field as a boolean, treating the bare checkbox
// value "on" as true.
func formBool(r *http.Request, field string) bool {
	value := strings.TrimSpace(r.FormValue(field))
	if value == "on" {
		return true
	}
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}
