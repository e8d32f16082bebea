package model

// SearchQuery is one issued search. Generation disambiguates concurrent
// queries: only the response carrying the highest issued generation may
// update visible results.
type SearchQuery struct {
	Text       string
	Generation int64
}

// SearchParams are the query-string knobs of the search endpoint.
// Zero values are left out of the request.
type SearchParams struct {
	Q      string
	Limit  int
	Offset int
	Sort   string
}

// ResultSet is the search endpoint response.
// Count is the backend's total match count; the backend may cap Results below it.
type ResultSet struct {
	OK            bool   `json:"ok"`
	Count         int    `json:"count"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
	Results       []Item `json:"results"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Item is one ingested evidence file.
type Item struct {
	Filename   string `json:"filename"`
	PathRel    string `json:"path_rel"`
	SizeBytes  int64  `json:"size_bytes"`
	MTime      string `json:"mtime"`
	Ext        string `json:"ext"`
	MIME       string `json:"mime"`
	Parts      Parts  `json:"parts"`
	PreviewURL string `json:"preview_url"`
}

// Parts are the fields the backend parsed out of a receipt.
type Parts struct {
	Nombre   string `json:"nombre,omitempty"`
	Fecha    string `json:"fecha,omitempty"`
	Hora     string `json:"hora,omitempty"`
	Banco    string `json:"banco,omitempty"`
	Valor    string `json:"valor,omitempty"`
	Telefono string `json:"telefono,omitempty"`
}
