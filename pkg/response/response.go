package response

// JSON is the generic response envelope used by middleware and error pages.
type JSON struct {
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(message string, data interface{}) JSON {
	return JSON{
		Status:  "success",
		Message: message,
		Data:    data,
	}
}

func Error(code, message string, data interface{}) JSON {
	return JSON{
		Status:  "error",
		Code:    code,
		Message: message,
		Data:    data,
	}
}
