package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testTestimonialSpaceID = "space-123"
	testAuthorName         = "Jane"
	testContent            = "Great!"
)

func intPointer(value int) *int {
	return &value
}

func TestNewTestimonialIsPendingDirect(t *testing.T) {
	testimonial, err := NewTestimonial(TestimonialInput{
		SpaceID:     testTestimonialSpaceID,
		AuthorName:  " " + testAuthorName + " ",
		AuthorEmail: "Jane@Example.com",
		Company:     "Acme",
		Avatar:      "https://example.com/jane.png",
		Content:     testContent,
		Rating:      intPointer(4),
		Answers:     []Answer{{Question: " Why? ", Answer: " Because "}},
		SocialLinks: SocialLinks{LinkedIn: "https://linkedin.com/in/jane"},
	})
	require.NoError(t, err)

	require.NotEmpty(t, testimonial.ID)
	require.Equal(t, TestimonialStatusPending, testimonial.Status)
	require.Equal(t, TestimonialSourceDirect, testimonial.Source)
	require.False(t, testimonial.Featured)
	require.Equal(t, testAuthorName, testimonial.Author.Name)
	require.Equal(t, "jane@example.com", testimonial.Author.Email)
	require.Equal(t, 4, *testimonial.Rating)
	require.Equal(t, []Answer{{Question: "Why?", Answer: "Because"}}, testimonial.Answers)
	require.Equal(t, "https://linkedin.com/in/jane", testimonial.SocialLinks.LinkedIn)
	require.False(t, testimonial.IsPublished())
}

func TestNewTestimonialValidation(t *testing.T) {
	validInput := func() TestimonialInput {
		return TestimonialInput{SpaceID: testTestimonialSpaceID, AuthorName: testAuthorName, Content: testContent}
	}

	testCases := []struct {
		name          string
		mutate        func(*TestimonialInput)
		expectedError error
	}{
		{name: "missing space", mutate: func(input *TestimonialInput) { input.SpaceID = " " }, expectedError: ErrInvalidTestimonialSpaceID},
		{name: "missing author", mutate: func(input *TestimonialInput) { input.AuthorName = "" }, expectedError: ErrInvalidTestimonialAuthorName},
		{name: "missing content", mutate: func(input *TestimonialInput) { input.Content = "  " }, expectedError: ErrInvalidTestimonialContent},
		{name: "content too long", mutate: func(input *TestimonialInput) { input.Content = strings.Repeat("c", testimonialContentMaxLength+1) }, expectedError: ErrInvalidTestimonialContent},
		{name: "rating too low", mutate: func(input *TestimonialInput) { input.Rating = intPointer(0) }, expectedError: ErrInvalidTestimonialRating},
		{name: "rating too high", mutate: func(input *TestimonialInput) { input.Rating = intPointer(6) }, expectedError: ErrInvalidTestimonialRating},
		{name: "invalid email", mutate: func(input *TestimonialInput) { input.AuthorEmail = "not-an-email" }, expectedError: ErrInvalidTestimonialAuthorEmail},
		{name: "invalid avatar", mutate: func(input *TestimonialInput) { input.Avatar = "javascript:alert(1)" }, expectedError: ErrInvalidTestimonialAuthorField},
		{name: "invalid social link", mutate: func(input *TestimonialInput) { input.SocialLinks.Twitter = "not a url" }, expectedError: ErrInvalidTestimonialSocialLink},
		{name: "unknown source", mutate: func(input *TestimonialInput) { input.Source = "carrier-pigeon" }, expectedError: ErrInvalidTestimonialSource},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(testingT *testing.T) {
			input := validInput()
			testCase.mutate(&input)
			_, err := NewTestimonial(input)
			require.ErrorIs(testingT, err, testCase.expectedError)
		})
	}
}

func TestTestimonialStatusTransitions(t *testing.T) {
	testCases := []struct {
		name     string
		from     TestimonialStatus
		to       TestimonialStatus
		strict   bool
		expected bool
	}{
		{name: "approve pending", from: TestimonialStatusPending, to: TestimonialStatusApproved, expected: true},
		{name: "reject pending", from: TestimonialStatusPending, to: TestimonialStatusRejected, expected: true},
		{name: "re-approve rejected", from: TestimonialStatusRejected, to: TestimonialStatusApproved, expected: true},
		{name: "reject approved", from: TestimonialStatusApproved, to: TestimonialStatusRejected, expected: true},
		{name: "back to pending", from: TestimonialStatusApproved, to: TestimonialStatusPending, expected: false},
		{name: "strict approve pending", from: TestimonialStatusPending, to: TestimonialStatusApproved, strict: true, expected: true},
		{name: "strict re-approve rejected", from: TestimonialStatusRejected, to: TestimonialStatusApproved, strict: true, expected: false},
		{name: "strict reject approved", from: TestimonialStatusApproved, to: TestimonialStatusRejected, strict: true, expected: false},
		{name: "unknown source status", from: "archived", to: TestimonialStatusApproved, expected: false},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(testingT *testing.T) {
			require.Equal(testingT, testCase.expected, testCase.from.CanTransitionTo(testCase.to, testCase.strict))
		})
	}
}

func TestParseTestimonialStatus(t *testing.T) {
	status, err := ParseTestimonialStatus(" Approved ")
	require.NoError(t, err)
	require.Equal(t, TestimonialStatusApproved, status)

	_, invalidErr := ParseTestimonialStatus("archived")
	require.ErrorIs(t, invalidErr, ErrInvalidTestimonialStatus)
}
