package ai3d

// Wire types for the Hunyuan-To-3D API. Field names follow the vendor's
// JSON casing exactly; the payload bytes sent are the same bytes that get
// hashed during signing.

type submitRequest struct {
	Prompt string `json:"Prompt"`
}

type queryRequest struct {
	JobId string `json:"JobId"`
}

// ResultFile3D is one generated artifact. Type is the model format
// identifier ("GLB", "OBJ", ...).
type ResultFile3D struct {
	Type            string `json:"Type"`
	Url             string `json:"Url"`
	PreviewImageUrl string `json:"PreviewImageUrl"`
}

// envelope is the outer response shape shared by every action. A response
// carries either the action payload fields or Error, never both.
type envelope struct {
	Response struct {
		RequestId     string         `json:"RequestId"`
		JobId         string         `json:"JobId"`
		Status        string         `json:"Status"`
		ErrorCode     string         `json:"ErrorCode"`
		ErrorMessage  string         `json:"ErrorMessage"`
		ResultFile3Ds []ResultFile3D `json:"ResultFile3Ds"`
		Error         *APIError      `json:"Error"`
	} `json:"Response"`
}

// APIError is a vendor rejection carried in the response envelope, such as a
// quota or parameter error on submission.
type APIError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

func (e *APIError) Error() string {
	return "ai3d: " + e.Code + ": " + e.Message
}

// SubmitResult is a successful submission: the remote job identifier plus
// the raw response bytes for the logging hook.
type SubmitResult struct {
	JobID string
	Raw   []byte
}

// QueryResult is one parsed status response. ErrorCode/ErrorMessage are the
// job-level failure fields; an empty ErrorCode means the job has not failed.
// Status may be empty or carry a value this client does not know about, and
// callers are expected to tolerate both.
type QueryResult struct {
	Status       string
	ErrorCode    string
	ErrorMessage string
	Files        []ResultFile3D
	Raw          []byte
}
