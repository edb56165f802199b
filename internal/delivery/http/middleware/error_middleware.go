package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"go-brokerage-backend/internal/delivery/http/response"
	"go-brokerage-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Check if there are errors appended to the context
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				// Wrapped causes (raw upstream bodies included) stay in the
				// server log; clients get the short diagnostic only.
				if appErr.Err != nil {
					fmt.Printf("[ERROR] %d %s: %v\n", appErr.Code, appErr.Message, appErr.Err)
				}
				response.Error(c, appErr.Code, appErr.Message, nil)
			} else {
				fmt.Printf("[ERROR] Internal Server Error: %v\n", err)
				response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
			}
		}
	}
}
