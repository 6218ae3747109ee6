package domain

// Category is an account tag carrying the keywords used for cluster matching.
type Category struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Account is a publishing account owned by the account/category layer.
type Account struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Platform   string     `json:"platform"`
	IsActive   bool       `json:"isActive"`
	Categories []Category `json:"categories"`
}

// CategoryNames lists the names of the account categories in order.
func (a Account) CategoryNames() []string {
	names := make([]string, 0, len(a.Categories))
	for _, c := range a.Categories {
		names = append(names, c.Name)
	}
	return names
}

// AccountProfile describes who an account writes for and how.
type AccountProfile struct {
	AccountID       string   `json:"accountId,omitempty"`
	Audience        string   `json:"audience"`
	Tone            string   `json:"tone"`
	GrowthGoal      string   `json:"growthGoal"`
	PainPoints      []string `json:"painPoints"`
	ContentPromise  string   `json:"contentPromise,omitempty"`
	ForbiddenTopics []string `json:"forbiddenTopics"`
	CTAStyle        string   `json:"ctaStyle,omitempty"`
	PreferredLength int      `json:"preferredLength"`
}

// ProfileOverride is a partial profile; nil fields keep the base value.
type ProfileOverride struct {
	Audience        *string  `json:"audience,omitempty"`
	Tone            *string  `json:"tone,omitempty"`
	GrowthGoal      *string  `json:"growthGoal,omitempty"`
	PainPoints      []string `json:"painPoints,omitempty"`
	ContentPromise  *string  `json:"contentPromise,omitempty"`
	ForbiddenTopics []string `json:"forbiddenTopics,omitempty"`
	CTAStyle        *string  `json:"ctaStyle,omitempty"`
	PreferredLength *int     `json:"preferredLength,omitempty"`
}
