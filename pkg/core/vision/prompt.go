// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import "strings"

// UserInstruction accompanies the photo in the user message.
const UserInstruction = "Which chicken breed is shown in this photo? Reply with the breed name from the list only."

// SystemPrompt builds the classification instructions for the given breed
// vocabulary. Names are listed comma-separated in the given order.
func SystemPrompt(names []string) string {
	var b strings.Builder
	b.WriteString("You are a poultry expert identifying chicken breeds from photos. ")
	b.WriteString("Choose the single breed that best matches the chicken in the image, and choose it ONLY from this list:\n\n")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n\nJudge by visual cues:\n")
	b.WriteString("- feather color and pattern\n")
	b.WriteString("- body size and shape\n")
	b.WriteString("- comb type and size\n")
	b.WriteString("- leg color and feathering\n")
	b.WriteString("\nAnswer with exactly one breed name, spelled exactly as it appears in the list, with no other text, punctuation or formatting. ")
	b.WriteString("If the photo is unclear or does not obviously show a chicken, still answer with the closest breed from the list; never refuse or answer with anything else.")
	return b.String()
}
