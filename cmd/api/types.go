package main

// HealthOutput is the health check response
type HealthOutput struct {
	Body struct {
		Status string `json:"status" example:"ok" doc:"Service status"`
	}
}

// LimitationsInput selects a record and the attachments the user wants
type LimitationsInput struct {
	ID     string   `query:"id"            doc:"Record id"                                   example:"42"`
	UUID   string   `query:"uuid"          doc:"Record uuid, used when id is absent"`
	Access string   `query:"access"        doc:"Attachment directory: public or private"     example:"public"`
	FNames []string `query:"fname,explode" doc:"Attachment names, repeated once per file"`
}

// FileDownloadInput addresses one attachment of a record
type FileDownloadInput struct {
	ID     string `path:"id"     doc:"Record id"          example:"42"`
	FName  string `path:"fname"  doc:"Attachment name"    example:"data.zip"`
	Access string `query:"access" doc:"Attachment directory" example:"public" default:"public"`
}
