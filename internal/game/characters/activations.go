package characters

import "github.com/eriantys/eriantys-server-go/internal/game/selection"

const (
	movementBonus  = 2
	influenceBonus = 2
	thiefLimit     = 3
)

func activatePriest(ctx Context, card *Card, sel selection.State) error {
	taken, err := card.take(sel.CardStudents)
	if err != nil {
		return err
	}
	if err := ctx.PlaceOnIsland(sel.Islands[0], taken[0]); err != nil {
		return err
	}
	card.refill(ctx, 1)
	return nil
}

func activateInnkeeper(ctx Context, _ *Card, _ selection.State) error {
	ctx.Effects().ProfessorTies = true
	return nil
}

func activateFlagBearer(ctx Context, _ *Card, sel selection.State) error {
	return ctx.ResolveIsland(sel.Islands[0])
}

func activatePostman(ctx Context, _ *Card, _ selection.State) error {
	ctx.Effects().MovementBonus += movementBonus
	return nil
}

func activateHerbalist(ctx Context, card *Card, sel selection.State) error {
	if card.NoEntry == 0 {
		return exhaustedf("no block tokens left on the card")
	}
	if err := ctx.PlaceNoEntry(sel.Islands[0]); err != nil {
		return err
	}
	card.NoEntry--
	return nil
}

func activateCentaur(ctx Context, _ *Card, _ selection.State) error {
	ctx.Effects().IgnoreTowers = true
	return nil
}

func activateJuggler(ctx Context, card *Card, sel selection.State) error {
	entrance := ctx.Entrance()
	for i, slot := range sel.EntranceSlots {
		pos := sel.CardStudents[i]
		if slot < 0 || slot >= len(entrance) {
			return invalidf("entrance slot %d out of range", slot)
		}
		if pos < 0 || pos >= len(card.Students) {
			return invalidf("card position %d out of range", pos)
		}
		old, err := ctx.SwapEntrance(slot, card.Students[pos])
		if err != nil {
			return err
		}
		card.Students[pos] = old
	}
	return nil
}

func activateKnight(ctx Context, _ *Card, _ selection.State) error {
	ctx.Effects().InfluenceBonus += influenceBonus
	return nil
}

func activateFungalmancer(ctx Context, _ *Card, sel selection.State) error {
	effects := ctx.Effects()
	effects.IgnoreColor = true
	effects.IgnoredColor = sel.Colors[0]
	return nil
}

func activateMinstrel(ctx Context, _ *Card, sel selection.State) error {
	return ctx.ExchangeWithTables(sel.EntranceSlots, sel.Colors)
}

func activateDame(ctx Context, card *Card, sel selection.State) error {
	taken, err := card.take(sel.CardStudents)
	if err != nil {
		return err
	}
	if err := ctx.AddToTable(taken[0]); err != nil {
		return err
	}
	card.refill(ctx, 1)
	return nil
}

func activateThief(ctx Context, _ *Card, sel selection.State) error {
	ctx.ReturnFromTables(sel.Colors[0], thiefLimit)
	return nil
}
