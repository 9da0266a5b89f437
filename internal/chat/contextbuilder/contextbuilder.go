// Package contextbuilder renders the personalized system prompt for a
// conversational turn. It is pure string assembly: no clock reads, no I/O.
package contextbuilder

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"storefront-workers/internal/models"
)

const (
	defaultHistoryWindow = 10
	defaultSummaryCount  = 3
)

// Builder assembles LLM prompts from a user profile and conversation history.
type Builder struct {
	historyWindow int
	summaryCount  int
}

func New(historyWindow, summaryCount int) *Builder {
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	if summaryCount <= 0 {
		summaryCount = defaultSummaryCount
	}
	return &Builder{historyWindow: historyWindow, summaryCount: summaryCount}
}

// BuildPrompt renders one prompt embedding the user's profile, a short
// preference summary, the recent conversation window, and the new message.
// The caller supplies now so the output is reproducible.
func (b *Builder) BuildPrompt(user *models.UserContext, history []models.ChatMessage, message string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("You are a friendly shopping assistant for an online marketplace. ")
	sb.WriteString("Respond conversationally and concisely. When the customer expresses ")
	sb.WriteString("shopping intent, acknowledge it and help them narrow down what they want.\n\n")

	sb.WriteString("Customer profile:\n")
	if user.DisplayName != "" {
		fmt.Fprintf(&sb, "- Name: %s\n", user.DisplayName)
	}
	if !user.Birthdate.IsZero() {
		fmt.Fprintf(&sb, "- Age: %d\n", AgeNextBirthday(user.Birthdate, now))
	}
	if user.Gender != "" {
		fmt.Fprintf(&sb, "- Gender: %s\n", user.Gender)
	}

	writeSummaryLine(&sb, "Recently searched", user.RecentSearches, b.summaryCount)
	writeSummaryLine(&sb, "Liked items", user.LikedItems, b.summaryCount)
	writeSummaryLine(&sb, "Recent purchases", user.RecentPurchases, b.summaryCount)
	writeSummaryLine(&sb, "In cart", user.CartItems, b.summaryCount)
	if tops := topCategories(user.Preferences.Categories, b.summaryCount); len(tops) > 0 {
		fmt.Fprintf(&sb, "- Favorite categories: %s\n", strings.Join(tops, ", "))
	}

	recent := recentTurns(history, b.historyWindow)
	if len(recent) > 0 {
		sb.WriteString("\nConversation so far:\n")
		for _, turn := range recent {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	fmt.Fprintf(&sb, "\nCustomer: %s\nAssistant:", message)
	return sb.String()
}

// AgeNextBirthday reports the age the person turns on their next birthday.
// The +1 convention is kept from the profile service that feeds this data.
func AgeNextBirthday(birthdate, now time.Time) int {
	years := now.Year() - birthdate.Year()
	if now.Month() < birthdate.Month() ||
		(now.Month() == birthdate.Month() && now.Day() < birthdate.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years + 1
}

// writeSummaryLine keeps the first n entries: activity lists arrive
// newest first from the profile store.
func writeSummaryLine(sb *strings.Builder, label string, items []string, n int) {
	if len(items) == 0 {
		return
	}
	if len(items) > n {
		items = items[:n]
	}
	fmt.Fprintf(sb, "- %s: %s\n", label, strings.Join(items, ", "))
}

// topCategories returns up to n category names ordered by descending count,
// ties broken alphabetically so the output is stable.
func topCategories(counts map[string]int, n int) []string {
	if len(counts) == 0 {
		return nil
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func recentTurns(history []models.ChatMessage, n int) []models.ChatMessage {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}
