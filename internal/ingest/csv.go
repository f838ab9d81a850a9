package ingest

import (
	"encoding/csv"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/ridewell/benefit-api/internal/api"
)

// Row is one parsed CSV record keyed by trimmed header name.
type Row map[string]string

// CSVFromRequest extracts CSV content from a request, accepting either a
// raw delimited-text body or the first file field of a multipart body.
func CSVFromRequest(r *http.Request) (string, error) {
	ct := r.Header.Get("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(ct)

	if mediaType == "multipart/form-data" {
		if params["boundary"] == "" {
			return "", api.ErrMissingBoundary
		}
		mr, err := r.MultipartReader()
		if err != nil {
			return "", api.ErrMissingBoundary
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", api.ErrNoFile
			}
			if part.FileName() == "" {
				continue
			}
			content, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				return "", api.ErrNoFile
			}
			return string(content), nil
		}
		return "", api.ErrNoFile
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || strings.TrimSpace(string(body)) == "" {
		return "", api.ErrEmptyCSV
	}
	return string(body), nil
}

// ParseCSV parses the content into rows keyed by header name and verifies
// the required headers are present.
func ParseCSV(content string, requiredHeaders ...string) ([]Row, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, api.ErrEmptyCSV
	}

	reader := csv.NewReader(strings.NewReader(trimmed))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, api.ErrEmptyCSV
	}
	if len(records) == 0 {
		return nil, api.ErrEmptyCSV
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	for _, required := range requiredHeaders {
		found := false
		for _, h := range header {
			if h == required {
				found = true
				break
			}
		}
		if !found {
			return nil, api.Error{Code: api.ErrMissingHeader.Code, Reason: required}
		}
	}

	var rows []Row
	for _, record := range records[1:] {
		row := make(Row, len(header))
		empty := true
		for i, h := range header {
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			if value != "" {
				empty = false
			}
			row[h] = value
		}
		if !empty {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return nil, api.ErrNoRows
	}

	return rows, nil
}
