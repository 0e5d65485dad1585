package server

import (
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/tenantdesk/internal/auth/domain"
)

type forgetPasswordRequest struct {
	Email string `json:"email"`
}

func (s *Server) Login(c *gin.Context) {
	var req authdomain.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.auth.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.Token, result.ExpiresAt)
	respondOK(c, result, "login successful")
}

func (s *Server) Logout(c *gin.Context) {
	admin, raw, ok := currentAdmin(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.auth.Logout(c.Request.Context(), admin.ID, raw); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	respondOK(c, nil, "logout successful")
}

// ForgetPassword mails a reset token to the admin. The token itself never
// appears in the response.
func (s *Server) ForgetPassword(c *gin.Context) {
	var req forgetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	ticket, err := s.auth.ForgetPassword(c.Request.Context(), req.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, ticket, "password reset instructions sent to your email")
}

func (s *Server) ResetPassword(c *gin.Context) {
	var req authdomain.ResetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.auth.ResetPassword(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, nil, "password has been reset successfully")
}
