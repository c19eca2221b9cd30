package api

import (
	"time"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

type spaceResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	HeaderTitle    string    `json:"headerTitle"`
	CustomMessage  string    `json:"customMessage"`
	Questions      []string  `json:"questions"`
	CollectionType string    `json:"collectionType"`
	StarRatings    bool      `json:"starRatings"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type authorResponse struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
}

type socialLinksResponse struct {
	Twitter  string `json:"twitter,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Facebook string `json:"facebook,omitempty"`
}

type testimonialResponse struct {
	ID          string              `json:"id"`
	SpaceID     string              `json:"spaceId"`
	Author      authorResponse      `json:"author"`
	Content     string              `json:"content"`
	Rating      *int                `json:"rating,omitempty"`
	Answers     []model.Answer      `json:"answers"`
	Status      string              `json:"status"`
	Source      string              `json:"source"`
	SocialLinks socialLinksResponse `json:"socialLinks"`
	Featured    bool                `json:"featured"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func toSpaceResponse(space model.Space) spaceResponse {
	questions := space.Questions
	if questions == nil {
		questions = []string{}
	}
	return spaceResponse{
		ID:             space.ID,
		UserID:         space.UserID,
		Name:           space.Name,
		Slug:           space.Slug,
		HeaderTitle:    space.HeaderTitle,
		CustomMessage:  space.CustomMessage,
		Questions:      questions,
		CollectionType: space.CollectionType,
		StarRatings:    space.StarRatings,
		CreatedAt:      space.CreatedAt,
		UpdatedAt:      space.UpdatedAt,
	}
}

func toSpaceResponses(spaces []model.Space) []spaceResponse {
	responses := make([]spaceResponse, 0, len(spaces))
	for _, space := range spaces {
		responses = append(responses, toSpaceResponse(space))
	}
	return responses
}

func toTestimonialResponse(testimonial model.Testimonial) testimonialResponse {
	answers := testimonial.Answers
	if answers == nil {
		answers = []model.Answer{}
	}
	return testimonialResponse{
		ID:      testimonial.ID,
		SpaceID: testimonial.SpaceID,
		Author: authorResponse{
			Name:    testimonial.Author.Name,
			Email:   testimonial.Author.Email,
			Company: testimonial.Author.Company,
			Avatar:  testimonial.Author.Avatar,
		},
		Content:     testimonial.Content,
		Rating:      testimonial.Rating,
		Answers:     answers,
		Status:      string(testimonial.Status),
		Source:      string(testimonial.Source),
		SocialLinks: socialLinksResponse(testimonial.SocialLinks),
		Featured:    testimonial.Featured,
		CreatedAt:   testimonial.CreatedAt,
		UpdatedAt:   testimonial.UpdatedAt,
	}
}

func toTestimonialResponses(testimonials []model.Testimonial) []testimonialResponse {
	responses := make([]testimonialResponse, 0, len(testimonials))
	for _, testimonial := range testimonials {
		responses = append(responses, toTestimonialResponse(testimonial))
	}
	return responses
}
