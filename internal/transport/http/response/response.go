package response

import "github.com/gin-gonic/gin"

const (
	StatusOK = "OK"
	StatusNG = "NG"
)

// APIResponse is the envelope shared by the account endpoints.
type APIResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func OK(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, APIResponse{
		Success: true,
		Status:  StatusOK,
		Message: message,
	})
}

func NG(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Status:  StatusNG,
		Message: message,
	})
}

// Data writes {success:true} merged with fields.
func Data(c *gin.Context, httpStatus int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(httpStatus, body)
}

// Error writes {success:false, error:message}.
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, gin.H{
		"success": false,
		"error":   message,
	})
}
