package dtos

// APIError is the JSON shape of every error response.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

type ExportRequest struct {
	Type     string   `json:"type" validate:"required"`
	Format   string   `json:"format" validate:"omitempty,oneof=csv xlsx"`
	Statuses []string `json:"statuses"`
	Fields   []string `json:"fields"`
	Limit    int      `json:"limit" validate:"gte=0"`
	Offset   int      `json:"offset" validate:"gte=0"`
	DateFrom string   `json:"date_from"`
	DateTo   string   `json:"date_to"`
}

type ExportResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"download_url"`
}

type CountResponse struct {
	TotalRows  int    `json:"total_rows"`
	StagedFile string `json:"staged_file"`
}

type BatchRequest struct {
	StagedFile string `json:"staged_file" validate:"required"`
	Offset     int    `json:"offset" validate:"gte=0"`
	ChunkSize  int    `json:"chunk_size" validate:"gte=0"`
	Mode       string `json:"mode" validate:"omitempty,oneof=update_or_create create_only"`
}

type BatchResponse struct {
	Processed  int  `json:"processed"`
	Created    int  `json:"created"`
	Updated    int  `json:"updated"`
	Skipped    int  `json:"skipped"`
	Errors     int  `json:"errors"`
	HasMore    bool `json:"has_more"`
	NextOffset int  `json:"next_offset"`
}

type FieldDTO struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type FieldGroupDTO struct {
	Key    string     `json:"key"`
	Label  string     `json:"label"`
	Fields []FieldDTO `json:"fields"`
}

type FieldsResponse struct {
	Groups []FieldGroupDTO `json:"groups"`
}

type CleanupResponse struct {
	Status string `json:"status"`
}
