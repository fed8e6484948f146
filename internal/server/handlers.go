package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/at-ishikawa/vocabox/internal/dictionary"
)

type lookupQuery struct {
	Query      string `form:"q" binding:"required,max=100,word"`
	SourceLang string `form:"sl" binding:"omitempty,max=10"`
	TargetLang string `form:"tl" binding:"omitempty,max=10"`
}

type rangeQuery struct {
	From int `form:"from" binding:"gte=0"`
	To   int `form:"to" binding:"required,gtfield=From"`
}

func (q rangeQuery) toRange() dictionary.Range {
	return dictionary.Range{From: q.From, To: q.To}
}

type searchQuery struct {
	Query string `form:"q" binding:"required,max=100"`
	rangeQuery
}

type idQuery struct {
	ID int64 `form:"id" binding:"required,gt=0"`
}

type idURI struct {
	ID int64 `uri:"id" binding:"required,gt=0"`
}

type wordQuery struct {
	Word string `form:"q" binding:"required,max=100"`
}

type imageQuery struct {
	Query  string `form:"q" binding:"required,max=100,word"`
	Amount int    `form:"amount" binding:"gte=0,lte=50"`
}

func (s *Server) bind(c *gin.Context, obj any, b binding.Binding) bool {
	if err := c.ShouldBindWith(obj, b); err != nil {
		s.writeError(c, newValidationError(err))
		return false
	}
	return true
}

func (s *Server) handleLookup(c *gin.Context) {
	var q lookupQuery
	if !s.bind(c, &q, binding.Query) {
		return
	}
	resolution, err := s.resolver.Resolve(c.Request.Context(), q.Query, q.SourceLang, q.TargetLang)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resolution)
}

func (s *Server) handleSave(c *gin.Context) {
	var req dictionary.SaveRequest
	if !s.bind(c, &req, binding.JSON) {
		return
	}
	entry, err := s.dictionary.Save(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleUpdate(c *gin.Context) {
	var req dictionary.UpdateRequest
	if !s.bind(c, &req, binding.JSON) {
		return
	}
	entry, err := s.dictionary.Update(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleDelete(c *gin.Context) {
	var q idQuery
	if !s.bind(c, &q, binding.Query) {
		return
	}
	if err := s.dictionary.Delete(c.Request.Context(), q.ID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeletePronunciation(c *gin.Context) {
	var q idQuery
	if !s.bind(c, &q, binding.Query) {
		return
	}
	if err := s.dictionary.DeletePronunciation(c.Request.Context(), q.ID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSearch(c *gin.Context) {
	var q searchQuery
	if !s.bind(c, &q, binding.Query) {
		return
	}
	page, err := s.dictionary.Search(c.Request.Context(), q.Query, q.toRange())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleList(c *gin.Context) {
	var q rangeQuery
	if !s.bind(c, &q, binding.Query) {
		return
	}
	page, err := s.dictionary.List(c.Request.Context(), q.toRange())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleAmount(c *gin.Context) {
	amount, err := s.dictionary.Count(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": amount})
}

func (s *Server) handleGet(c *gin.Context) {
	var uri idURI
	if err := c.ShouldBindUri(&uri); err != nil {
		s.writeError(c, newValidationError(err))
		return
	}
	entry, err := s.dictionary.Get(c.Request.Context(), uri.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleRandomWord(c *gin.Context) {
	word, err := s.randomWords.Random()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"word": word})
}

func (s *Server) handleDeleteRandomWord(c *gin.Context) {
	var q wordQuery
	if !s.bind(c, &q, binding.Query) {
		return
	}
	if err := s.randomWords.Remove(q.Word); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleImageSearch(c *gin.Context) {
	var q imageQuery
	if !s.bind(c, &q, binding.Query) {
		return
	}
	images, err := s.images.Search(c.Request.Context(), q.Query, q.Amount)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}
