package batch

import "github.com/MimeLyc/txt2img-batch/internal/workflow"

// DefaultPrompts is the built-in logo batch: a crystal ball with dream
// nebula on deep indigo, four variants.
var DefaultPrompts = []workflow.Prompt{
	{
		Name:  "dream_logo_v1",
		Seed:  80101,
		ClipL: "app icon, glowing crystal ball on deep indigo background, " +
			"purple lavender nebula swirls inside the orb, mystical, " +
			"minimal flat illustration, centered, no text",
		T5XXL: "a premium mobile app icon on solid deep indigo background hex 1A1B4B, " +
			"a beautiful glowing crystal ball floating in the center, " +
			"the crystal ball is translucent with swirling nebula clouds inside, " +
			"colors inside the ball are lavender hex C4B5FD and soft purple hex 8B5CF6, " +
			"with tiny star-like sparkles floating within the orb, " +
			"the ball emits a soft ethereal glow in lavender hex C4B5FD around it, " +
			"the overall mood is mystical dreamy and magical like a dream world, " +
			"flat minimal vector illustration style, clean bold shapes, " +
			"premium luxury brand feel, soft glow effect around the orb, " +
			"perfectly centered in the square icon, no text no letters no words",
	},
	{
		Name:  "dream_logo_v2",
		Seed:  80202,
		ClipL: "app icon, purple crystal orb with stars inside, deep navy background, " +
			"dreamy mystical atmosphere, soft glow, minimal flat art, no text",
		T5XXL: "a square app icon with solid dark indigo background hex 1A1B4B, " +
			"featuring a single luminous crystal sphere at the center, " +
			"the sphere contains swirling cosmic nebula in purple and lavender tones, " +
			"inside the orb there are tiny twinkling stars and cloud-like formations, " +
			"the glass sphere has a subtle reflection highlight on the upper left, " +
			"a soft radial glow extends from the orb in pale lavender hex C4B5FD, " +
			"small sparkle particles float around the sphere, " +
			"the feeling is like looking into a dream world captured in a glass ball, " +
			"flat minimal design, clean vector shapes, premium app icon quality, " +
			"no gradients on the background only on the orb itself, " +
			"no text no typography no letters, perfectly centered",
	},
	{
		Name:  "dream_logo_v3",
		Seed:  80303,
		ClipL: "app icon, mystical dream orb, cloud nebula inside glass sphere, " +
			"deep indigo background, lavender purple glow, " +
			"premium flat illustration, centered, no text",
		T5XXL: "a minimalist yet magical app icon, solid deep indigo background hex 1A1B4B, " +
			"a perfectly round crystal ball in the center glowing with inner light, " +
			"inside the crystal ball soft purple clouds and nebula formations swirl gently, " +
			"colors are lavender hex C4B5FD, soft violet hex 8B5CF6, and white wisps, " +
			"three or four tiny star dots twinkle inside the orb, " +
			"the orb sits on nothing floating in space, " +
			"a crescent moon shape in pale gold hex FDE68A subtly visible behind the orb, " +
			"the glow around the sphere is soft and dreamlike, " +
			"this represents a dream interpretation magical crystal ball, " +
			"flat clean vector art style, bold simple shapes, " +
			"designed to look magical and premium at any size, " +
			"no text no words, solid color background, square format",
	},
	{
		Name:  "dream_logo_v4",
		Seed:  80404,
		ClipL: "app icon, crystal ball dream catcher, nebula and stars inside orb, " +
			"indigo night sky background, soft purple glow, flat design, no text",
		T5XXL: "a premium brand app icon, solid dark indigo night background hex 1A1B4B, " +
			"a central luminous crystal sphere that captures dreams, " +
			"the orb is filled with a beautiful miniature galaxy of purple nebula clouds, " +
			"delicate wisps of lavender hex C4B5FD and violet hex 7C3AED swirl inside, " +
			"pinpoint stars of white and gold dot the interior like captured starlight, " +
			"the sphere surface has a clean glass-like quality with a single highlight, " +
			"emanating from the orb is a soft halo of pale purple light, " +
			"the whole composition evokes mystery and the world of dreams, " +
			"flat illustration style with clean precise vector shapes, " +
			"luxury premium app branding quality, " +
			"looks beautiful and recognizable at sizes from 512px to 48px, " +
			"no text no letters, perfectly centered in square format",
	},
}
