package browser

// XPath selectors for the platform's creation page. The page is a React
// app whose markup shifts between releases; selectors key on stable
// attributes (placeholder text, aria labels) rather than class names.
const (
	selCustomButton   = `//button[normalize-space(.)='Custom']`
	selLyricsTextarea = `//textarea[contains(@placeholder, 'Write some lyrics')]`
	selStyleTextarea  = `//textarea[contains(@placeholder, 'indie, electronic')]`
	selTitleInput     = `//input[contains(@placeholder, 'Song Title')]`
	selCreateButton   = `//button[@aria-label='Create song']`
)
