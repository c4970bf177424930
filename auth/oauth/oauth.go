// Package oauth is the social-login boundary. It produces the same
// authenticated identity the rest of the system consumes; nothing in
// the disclosure core knows how the account was established.
package oauth

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	"gorm.io/gorm"

	"github.com/basit/nua-backend/auth"
	"github.com/basit/nua-backend/initializers"
	"github.com/basit/nua-backend/models"
)

func InitStore() {
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET is not set")
	}

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   true,
	})
	gothic.Store = store

	goth.UseProviders(
		google.New(
			os.Getenv("GOOGLE_CLIENT_ID"),
			os.Getenv("GOOGLE_CLIENT_SECRET"),
			os.Getenv("GOOGLE_REDIRECT_URL"),
			"email", "profile",
		),
		github.New(
			os.Getenv("GITHUB_CLIENT_ID"),
			os.Getenv("GITHUB_CLIENT_SECRET"),
			os.Getenv("GITHUB_REDIRECT_URL"),
			"user:email",
		),
	)
}

// BeginAuth starts the provider flow.
func BeginAuth(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Add("provider", c.Param("provider"))
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// CompleteAuth finishes the provider flow, upserts the account and
// hands back a JWT pair like a password login would.
func CompleteAuth(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Add("provider", c.Param("provider"))
	c.Request.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Printf("Auth error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Authentication failed"})
		return
	}

	user, err := findOrCreateOAuthUser(gothUser)
	if err != nil {
		log.Printf("OAuth user error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to process user data"})
		return
	}

	accessToken, refreshToken, err := auth.GenerateTokens(user.ID.String())
	if err != nil {
		log.Printf("Token generation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate tokens"})
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		HttpOnly: true,
		Secure:   true,
		Path:     "/api/auth/refresh",
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})

	session := sessions.Default(c)
	session.Set("authenticated", true)
	session.Set("user_id", user.ID.String())
	if err := session.Save(); err != nil {
		log.Printf("Session save error: %v", err)
	}

	frontendURL := os.Getenv("BASE_URL")
	c.Redirect(http.StatusTemporaryRedirect, fmt.Sprintf("%s/auth/success?token=%s", frontendURL, accessToken))
}

func findOrCreateOAuthUser(gothUser goth.User) (*models.User, error) {
	var user models.User

	var err error
	switch gothUser.Provider {
	case "google":
		err = initializers.DB.Where("google_id = ?", gothUser.UserID).First(&user).Error
	case "github":
		err = initializers.DB.Where("git_hub_id = ?", gothUser.UserID).First(&user).Error
	default:
		return nil, fmt.Errorf("unsupported provider: %s", gothUser.Provider)
	}
	if err == nil {
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("database query error: %v", err)
	}

	// Link by email if the account already exists.
	err = initializers.DB.Where("email = ?", gothUser.Email).First(&user).Error
	if err == nil {
		updates := map[string]interface{}{
			"name":       gothUser.Name,
			"avatar_url": gothUser.AvatarURL,
			"provider":   gothUser.Provider,
		}
		switch gothUser.Provider {
		case "google":
			updates["google_id"] = gothUser.UserID
		case "github":
			updates["git_hub_id"] = gothUser.UserID
		}
		if err := initializers.DB.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to link OAuth account: %v", err)
		}
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("database query error: %v", err)
	}

	user = models.User{
		ID:        uuid.New(),
		Name:      gothUser.Name,
		Email:     gothUser.Email,
		AvatarURL: gothUser.AvatarURL,
		Provider:  &gothUser.Provider,
	}
	switch gothUser.Provider {
	case "google":
		user.GoogleID = &gothUser.UserID
	case "github":
		user.GitHubID = &gothUser.UserID
	}
	if err := initializers.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %v", err)
	}
	return &user, nil
}
