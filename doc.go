// Package sketchpad is a composite face-sketch editor for [Ebitengine].
//
// An investigator builds a suspect likeness by placing catalog images of
// facial features (face shapes, eyes, brows, noses, lips, hair, facial hair,
// ears, necks, accessories) on a 600x700 canvas, then moving, resizing,
// rotating, flipping, re-stacking and tone-adjusting each one. The result is
// saved to a remote sketch store, kept as a local draft and exported as a PNG
// with a JSON metadata document.
//
// # Quick start
//
// [Editor] implements [ebiten.Game]:
//
//	ed := sketchpad.NewEditor(sketchpad.Options{
//		Width: 1024, Height: 800,
//		Records: sketchClient,
//		Drafts:  draftStore,
//		Images:  imageClient,
//	})
//	ed.Load(recordID)
//	ebiten.RunGame(ed)
//	ed.Close(context.Background())
//
// # Scene
//
// The [Scene] holds every [PlacedFeature] keyed by a stable id, the canvas
// settings, the view [Camera], the multi-selection and the case metadata.
// Every mutation notifies listeners with a [ChangeKind]; the renderer, the
// draft debounce and autosave are all driven by those notifications.
//
// Features are added at a category-aware position ([SmartPosition]) or at a
// drop point ([DropPosition]). Locked features refuse geometry, z-order,
// duplicate and delete operations.
//
// # Interaction
//
// The [Controller] is a three-state pointer machine (idle, dragging,
// resizing). A click over overlapping features selects the smallest one and
// flags it with a fading indicator. Pointer moves are buffered and applied
// once per frame; a finished gesture records one [History] snapshot.
//
// Keyboard commands are bound in [Editor.HandleKey]: undo/redo, duplicate,
// delete, flip, z-order, scale, select all, save and export.
//
// # Rendering
//
// Each frame the scene is compiled into a list of [RenderCommand] values and
// submitted to the GPU only when something changed. Brightness and contrast
// are a [ColorMatrix] applied by a Kage shader on screen and on the CPU by
// the [Exporter], so exports match what is drawn.
//
// # Persistence
//
// The [Manager] writes a local draft two seconds after the last change,
// autosaves every 30 seconds when the structural hash changed, saves
// explicitly with read-after-write and loads with remote-then-draft
// fallback. Blocking work runs on an [Executor]; completions are applied on
// the game loop.
//
// [Ebitengine]: https://ebitengine.org
package sketchpad
