package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/postboard-dev/postboard/internal/models"
)

const postsPerPage = 10

// CreatePostRequest represents a create post request
type CreatePostRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=10000"`
}

// PostsResponse is a list of posts and how many it holds
type PostsResponse struct {
	Posts []models.Post `json:"posts"`
	Count int           `json:"count"`
}

func (s *Server) createPost(c *gin.Context) {
	session, ok := GetSessionData(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized", "Missing session")
		return
	}

	var req CreatePostRequest
	if !s.bindJSON(c, &req) {
		return
	}

	post := &models.Post{
		Title:   req.Title,
		Content: req.Content,
		User:    session.Username,
	}
	if err := s.db.Create(post).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create post")
		respondInternalError(c)
		return
	}

	s.logger.Info().Str("post_id", post.ID).Str("username", post.User).Msg("Post created")
	c.JSON(http.StatusCreated, post)
}

func (s *Server) listPosts(c *gin.Context) {
	posts := []models.Post{}
	if err := s.newestFirst().Find(&posts).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list posts")
		respondInternalError(c)
		return
	}

	c.JSON(http.StatusOK, PostsResponse{Posts: posts, Count: len(posts)})
}

func (s *Server) listPostsPage(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid page", "Page must be a number")
		return
	}

	if page < 1 {
		respondError(c, http.StatusNotFound, "Page not found", "Page must be an integer greater than zero")
		return
	}

	var total int64
	if err := s.db.Model(&models.Post{}).Count(&total).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count posts")
		respondInternalError(c)
		return
	}

	offset := (page - 1) * postsPerPage
	if int64(offset) >= total {
		respondError(c, http.StatusNotFound, "Page not found", "")
		return
	}

	posts := []models.Post{}
	if err := s.newestFirst().Limit(postsPerPage).Offset(offset).Find(&posts).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list posts")
		respondInternalError(c)
		return
	}

	c.JSON(http.StatusOK, PostsResponse{Posts: posts, Count: len(posts)})
}

// newestFirst orders posts by date, breaking ties by ID (ULIDs sort by creation time)
func (s *Server) newestFirst() *gorm.DB {
	return s.db.Model(&models.Post{}).Order("date_added DESC").Order("id DESC")
}
