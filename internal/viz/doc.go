// Package viz draws simulation models in the terminal.
//
// [Canvas] is a Braille dot grid: each character cell carries 2x4 dots, so
// an 80x24 canvas resolves 160x96 points. [Viewport] maps model
// coordinates (nm for md2d, m for energy2d) onto it with y pointing up.
//
// [Draw] renders a model onto a canvas:
//
//   - md2d: the box outline, atoms as discs of diameter sigma (excited
//     atoms drawn one dot larger) and moving photons as single dots.
//   - energy2d: the temperature field as an ordered-dither, part outlines,
//     and sensors as small crosses cut out of the field.
//
// Colours come from a [Theme]; [NewStyles] turns one into the lipgloss
// styles used by the stepper.
package viz
