package catalog

import "time"

const pexels = "?auto=compress&cs=tinysrgb&w=800"

// DefaultCollections is shown when the provider has no collections or is
// unreachable.
func DefaultCollections() []Collection {
	return []Collection{
		{
			ID:          "1",
			Name:        "Accra Nights",
			Slug:        "accra-nights",
			Description: "Urban elegance inspired by the vibrant nightlife of Accra",
			Image:       "https://images.pexels.com/photos/3407270/pexels-photo-3407270.jpeg" + pexels,
		},
		{
			ID:          "2",
			Name:        "The Culture Collection",
			Slug:        "culture-collection",
			Description: "Celebrating Ghanaian heritage and traditional craftsmanship",
			Image:       "https://images.pexels.com/photos/1778412/pexels-photo-1778412.jpeg" + pexels,
		},
		{
			ID:          "3",
			Name:        "Street Essence",
			Slug:        "street-essence",
			Description: "Raw, unfiltered streetwear for the bold and authentic",
			Image:       "https://images.pexels.com/photos/1082516/pexels-photo-1082516.jpeg" + pexels,
		},
		{
			ID:          "4",
			Name:        "Art & Expression",
			Slug:        "art-expression",
			Description: "Limited edition pieces featuring local artists' work",
			Image:       "https://images.pexels.com/photos/2018961/pexels-photo-2018961.jpeg" + pexels,
		},
	}
}

// DefaultPosts is shown when the provider has no published posts or is
// unreachable. Post dates are relative to now.
func DefaultPosts(now time.Time) []BlogPost {
	day := 24 * time.Hour
	return []BlogPost{
		{
			ID:        "1",
			Title:     "The Evolution of Ghanaian Streetwear in 2025",
			Slug:      "evolution-ghanaian-streetwear",
			Excerpt:   "Explore how Ghanaian street fashion is transforming the global fashion landscape with authentic cultural expression.",
			Image:     "https://images.pexels.com/photos/3407270/pexels-photo-3407270.jpeg" + pexels,
			Tags:      []string{"Fashion", "Culture", "Trends"},
			Published: true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "2",
			Title:     "Behind the Scenes: Our New Collection Launch",
			Slug:      "behind-scenes-collection",
			Excerpt:   "Get an exclusive look at how we create each piece in our Accra studio.",
			Image:     "https://images.pexels.com/photos/1082516/pexels-photo-1082516.jpeg" + pexels,
			Tags:      []string{"Process", "Design", "News"},
			Published: true,
			CreatedAt: now.Add(-day),
			UpdatedAt: now.Add(-day),
		},
		{
			ID:        "3",
			Title:     "Interview: Local Artists Supporting D'Mayor",
			Slug:      "interview-local-artists",
			Excerpt:   "Meet the talented Ghanaian artists whose work inspires our designs.",
			Image:     "https://images.pexels.com/photos/2018961/pexels-photo-2018961.jpeg" + pexels,
			Tags:      []string{"Art", "Community", "Interview"},
			Published: true,
			CreatedAt: now.Add(-2 * day),
			UpdatedAt: now.Add(-2 * day),
		},
	}
}
