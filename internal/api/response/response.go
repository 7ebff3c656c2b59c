package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of the read endpoints
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse is the envelope of every failure
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Success writes {success:true, data}
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// SuccessWithMessage writes {success:true, data, message}
func SuccessWithMessage(c *gin.Context, data interface{}, msg string) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Message: msg})
}

// Error writes {success:false, error} with the given status
func Error(c *gin.Context, httpStatus int, msg string) {
	c.JSON(httpStatus, ErrorResponse{Success: false, Error: msg})
}

// Abort writes an error and stops the handler chain
func Abort(c *gin.Context, httpStatus int, msg string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{Success: false, Error: msg})
}
