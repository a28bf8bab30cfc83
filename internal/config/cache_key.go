package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:student:%d", studentID)
}

// AssignmentPaperKey returns the cache key for a published assignment's paper
func (r *CacheKeyStruct) AssignmentPaperKey(assignmentID string) string {
	return fmt.Sprintf("assignment:%s:paper", assignmentID)
}

// StudentDraftAnswersKey returns the cache key for a student's autosaved answers
func (r *CacheKeyStruct) StudentDraftAnswersKey(assignmentID string, studentID int) string {
	return fmt.Sprintf("student:%d:assignment:%s:answers", studentID, assignmentID)
}

var CacheKey = NewCacheKeyStruct()
