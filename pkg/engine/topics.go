package engine

import "math/rand"

// conversationTopics maps CEFR levels to opening topics. The tutor picks one
// at random when a session starts so repeated sessions do not all begin the
// same way.
var conversationTopics = map[string][]string{
	"A1": {
		"introducing yourself and your family",
		"your favorite food and drinks",
		"colors and clothes you like",
		"the weather today",
		"your daily routine",
		"your pets or favorite animals",
	},
	"A2": {
		"your last weekend",
		"your hometown and what it is known for",
		"your hobbies and free time",
		"shopping at the market",
		"plans for your next holiday",
		"your favorite season of the year",
	},
	"B1": {
		"a memorable trip you took",
		"a film or series you watched recently",
		"healthy habits and exercise",
		"life in a big city versus a small town",
		"a skill you would like to learn",
		"your favorite kind of music and why",
	},
	"B2": {
		"how technology changes the way we communicate",
		"the pros and cons of working from home",
		"a book that changed your perspective",
		"cultural differences you have experienced",
		"the role of social media in daily life",
		"what makes a good friend",
	},
	"C1": {
		"the ethics of artificial intelligence",
		"how globalization affects local cultures",
		"the future of education",
		"work-life balance in modern society",
		"environmental policy and individual responsibility",
		"the influence of media on public opinion",
	},
	"C2": {
		"the philosophy of language and meaning",
		"economic inequality and possible remedies",
		"the tension between privacy and security",
		"art as a mirror of society",
		"the limits of scientific knowledge",
		"how history shapes national identity",
	},
}

// topicFor picks an opening topic for the level, falling back to B1 for
// anything unrecognized.
func topicFor(level string) string {
	topics, ok := conversationTopics[level]
	if !ok || len(topics) == 0 {
		topics = conversationTopics["B1"]
	}
	return topics[rand.Intn(len(topics))]
}
